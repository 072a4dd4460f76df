package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/KMINALI2005/School-management-system/internal/domain"
)

func listNames(dir string) []string {
	entries, _ := os.ReadDir(dir)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func TestRetention(t *testing.T) {
	Convey("Given a backup directory with automatic and manual archives", t, func() {
		dir, err := os.MkdirTemp("", "retention-test-*")
		So(err, ShouldBeNil)
		defer os.RemoveAll(dir)

		base := time.Date(2026, 3, 1, 2, 0, 0, 0, time.Local)
		var autos []string
		for i := 0; i < 15; i++ {
			ts := base.Add(time.Duration(i) * time.Hour)
			name := domain.AutoBackupName(ts)
			path := filepath.Join(dir, name)
			writeFile(path, "archive")
			So(os.Chtimes(path, ts, ts), ShouldBeNil)
			autos = append(autos, name)
		}

		manual := []string{"backup_20200101_000000.zip", "before_exam.zip", "auto_backup_notes.txt"}
		for _, name := range manual {
			path := filepath.Join(dir, name)
			writeFile(path, "manual")
			old := base.Add(-24 * time.Hour)
			So(os.Chtimes(path, old, old), ShouldBeNil)
		}

		uc := NewRetention(nopLogger{})

		Convey("When pruning to 10", func() {
			deleted, err := uc.Prune(context.Background(), dir, 10)

			Convey("It should keep exactly the 10 newest automatic archives", func() {
				So(err, ShouldBeNil)
				So(deleted, ShouldEqual, 5)

				remaining := listNames(dir)
				for _, name := range autos[:5] {
					So(remaining, ShouldNotContain, name)
				}
				for _, name := range autos[5:] {
					So(remaining, ShouldContain, name)
				}
			})

			Convey("It should never touch files outside the naming convention", func() {
				remaining := listNames(dir)
				for _, name := range manual {
					So(remaining, ShouldContain, name)
				}
			})

			Convey("Running it again should be a no-op", func() {
				before := listNames(dir)
				deleted, err := uc.Prune(context.Background(), dir, 10)
				So(err, ShouldBeNil)
				So(deleted, ShouldEqual, 0)
				So(listNames(dir), ShouldResemble, before)
			})
		})

		Convey("When keep exceeds the number of archives", func() {
			deleted, err := uc.Prune(context.Background(), dir, 50)

			Convey("It should delete nothing", func() {
				So(err, ShouldBeNil)
				So(deleted, ShouldEqual, 0)
				So(len(listNames(dir)), ShouldEqual, 18)
			})
		})

		Convey("When modification times disagree with the names", func() {
			// the newest name is the oldest file on disk
			newest := filepath.Join(dir, autos[14])
			old := base.Add(-48 * time.Hour)
			So(os.Chtimes(newest, old, old), ShouldBeNil)

			_, err := uc.Prune(context.Background(), dir, 1)

			Convey("It should order by creation time on disk", func() {
				So(err, ShouldBeNil)
				remaining := listNames(dir)
				So(remaining, ShouldContain, autos[13])
				So(remaining, ShouldNotContain, autos[14])
			})
		})

		Convey("When the directory does not exist", func() {
			_, err := uc.Prune(context.Background(), filepath.Join(dir, "missing"), 10)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestPruneTargets(t *testing.T) {
	Convey("Given remote targets holding automatic archives", t, func() {
		var names []string
		base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.Local)
		for i := 0; i < 4; i++ {
			names = append(names, domain.AutoBackupName(base.Add(time.Duration(i)*time.Hour)))
		}
		names = append(names, "backup_20260301_000000.zip")

		s3 := newMemStorage(names...)
		drive := newMemStorage(names...)
		uc := NewRetention(nopLogger{})

		Convey("When pruning to 2", func() {
			err := uc.PruneTargets(context.Background(), []UploadTarget{
				{Name: "s3", Storage: s3},
				{Name: "gdrive", Storage: drive},
			}, 2)

			Convey("It should keep the 2 newest by name timestamp on every target", func() {
				So(err, ShouldBeNil)
				for _, s := range []*memStorage{s3, drive} {
					So(s.count(), ShouldEqual, 3)
					So(s.has(names[3]), ShouldBeTrue)
					So(s.has(names[2]), ShouldBeTrue)
					So(s.has(names[0]), ShouldBeFalse)
					So(s.has("backup_20260301_000000.zip"), ShouldBeTrue)
				}
			})
		})

		Convey("When one deletion fails", func() {
			s3.failNames[names[0]] = true
			err := uc.PruneTargets(context.Background(), []UploadTarget{{Name: "s3", Storage: s3}}, 2)

			Convey("It should skip it, continue and report the failure", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, names[0])
				So(s3.has(names[0]), ShouldBeTrue)
				So(s3.has(names[1]), ShouldBeFalse)
			})
		})

		Convey("When a target cannot be listed", func() {
			s3.failWith = fmt.Errorf("access denied")
			err := uc.PruneTargets(context.Background(), []UploadTarget{
				{Name: "s3", Storage: s3},
				{Name: "gdrive", Storage: drive},
			}, 2)

			Convey("It should still prune the others", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "s3")
				So(drive.count(), ShouldEqual, 3)
			})
		})

		Convey("When there are no targets", func() {
			So(uc.PruneTargets(context.Background(), nil, 2), ShouldBeNil)
		})
	})
}
