package domain

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestNaming(t *testing.T) {
	Convey("Given a timestamp", t, func() {
		ts := time.Date(2026, 3, 1, 14, 5, 9, 0, time.Local)

		Convey("Automatic names follow the retention convention", func() {
			name := AutoBackupName(ts)
			So(name, ShouldEqual, "auto_backup_20260301_140509.zip")
			So(IsAutoBackupName(name), ShouldBeTrue)

			parsed, err := AutoBackupTime(name)
			So(err, ShouldBeNil)
			So(parsed.Equal(ts), ShouldBeTrue)
		})

		Convey("Manual names are exempt from retention", func() {
			name := ManualBackupName(ts)
			So(name, ShouldEqual, "backup_20260301_140509.zip")
			So(IsAutoBackupName(name), ShouldBeFalse)
			So(IsArchiveName(name), ShouldBeTrue)
		})

		Convey("Near misses are not automatic archives", func() {
			for _, name := range []string{
				"auto_backup_20260301_140509.zip.partial",
				"auto_backup_2026031_140509.zip",
				"my_auto_backup_20260301_140509.zip",
				"auto_backup_20260301_140509.tar",
			} {
				So(IsAutoBackupName(name), ShouldBeFalse)
			}
			_, err := AutoBackupTime("backup_20260301_140509.zip")
			So(err, ShouldNotBeNil)
		})

		Convey("Hidden partial files are not archives", func() {
			So(IsArchiveName(".backup.zip.1234.partial"), ShouldBeFalse)
			So(IsArchiveName(".hidden.zip"), ShouldBeFalse)
			So(IsArchiveName("notes.txt"), ShouldBeFalse)
		})

		Convey("Pre-restore copies sit next to the target", func() {
			So(PreRestoreBackupPath("/data/school.db", ts), ShouldEqual, "/data/school.db.backup_20260301_140509")
		})

		Convey("Backup types follow the auxiliary flag", func() {
			So(BackupTypeFor(true), ShouldEqual, BackupTypeFull)
			So(BackupTypeFor(false), ShouldEqual, BackupTypeDatabaseOnly)
			So(BackupType("incremental").Valid(), ShouldBeFalse)
			So(BackupConfig{IntervalHours: 6}.Interval(), ShouldEqual, 6*time.Hour)
		})
	})
}
