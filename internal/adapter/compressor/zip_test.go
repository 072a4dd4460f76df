package compressor

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/KMINALI2005/School-management-system/internal/domain"
)

func testManifest(t domain.BackupType, size int64) domain.Manifest {
	return domain.Manifest{
		CreatedAt:    time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC),
		Version:      domain.FormatVersion,
		DatabaseSize: size,
		BackupType:   t,
	}
}

func writeRawZip(path string, entries map[string]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			return err
		}
		if _, err := w.Write([]byte(content)); err != nil {
			return err
		}
	}
	return zw.Close()
}

func TestZipCompressor(t *testing.T) {
	Convey("Given a ZipCompressor", t, func() {
		codec := NewZip()

		tempDir, err := os.MkdirTemp("", "zip_codec_test")
		So(err, ShouldBeNil)
		defer os.RemoveAll(tempDir)

		scratch := filepath.Join(tempDir, "scratch")
		So(os.MkdirAll(filepath.Join(scratch, "resources", "images"), 0755), ShouldBeNil)
		dbContent := []byte("SQLite format 3\x00 school data")
		So(os.WriteFile(filepath.Join(scratch, domain.DatabaseEntry), dbContent, 0644), ShouldBeNil)

		archivePath := filepath.Join(tempDir, "out", "backup.zip")

		Convey("Write method", func() {
			Convey("When writing a database only payload", func() {
				err := codec.Write(testManifest(domain.BackupTypeDatabaseOnly, int64(len(dbContent))), scratch, archivePath)

				Convey("It should produce an archive with fixed root entries", func() {
					So(err, ShouldBeNil)

					zr, err := zip.OpenReader(archivePath)
					So(err, ShouldBeNil)
					defer zr.Close()

					names := []string{}
					for _, f := range zr.File {
						names = append(names, f.Name)
					}
					So(names, ShouldContain, domain.ManifestEntry)
					So(names, ShouldContain, domain.DatabaseEntry)
					So(names[0], ShouldEqual, domain.ManifestEntry)
				})

				Convey("It should leave no partial files behind", func() {
					entries, err := os.ReadDir(filepath.Dir(archivePath))
					So(err, ShouldBeNil)
					So(len(entries), ShouldEqual, 1)
					So(entries[0].Name(), ShouldEqual, "backup.zip")
				})
			})

			Convey("When the payload includes auxiliary files", func() {
				So(os.WriteFile(filepath.Join(scratch, domain.ConfigEntry), []byte("DEFAULT_LANGUAGE = 'ar'"), 0644), ShouldBeNil)
				So(os.WriteFile(filepath.Join(scratch, "resources", "images", "logo.png"), []byte("png"), 0644), ShouldBeNil)

				err := codec.Write(testManifest(domain.BackupTypeFull, int64(len(dbContent))), scratch, archivePath)
				So(err, ShouldBeNil)

				Convey("Read should restore the same tree", func() {
					out := filepath.Join(tempDir, "extract")
					So(os.MkdirAll(out, 0755), ShouldBeNil)

					manifest, err := codec.Read(archivePath, out)
					So(err, ShouldBeNil)
					So(manifest.BackupType, ShouldEqual, domain.BackupTypeFull)

					logo, err := os.ReadFile(filepath.Join(out, "resources", "images", "logo.png"))
					So(err, ShouldBeNil)
					So(string(logo), ShouldEqual, "png")

					cfg, err := os.ReadFile(filepath.Join(out, domain.ConfigEntry))
					So(err, ShouldBeNil)
					So(string(cfg), ShouldContainSubstring, "DEFAULT_LANGUAGE")
				})
			})

			Convey("When the destination directory cannot be created", func() {
				blocker := filepath.Join(tempDir, "blocker")
				So(os.WriteFile(blocker, []byte("x"), 0644), ShouldBeNil)

				err := codec.Write(testManifest(domain.BackupTypeFull, 1), scratch, filepath.Join(blocker, "a.zip"))

				Convey("It should report a destination write failure", func() {
					So(err, ShouldNotBeNil)
					So(domain.KindOf(err), ShouldEqual, domain.KindDestinationWriteFailure)
				})
			})
		})

		Convey("Read method", func() {
			So(codec.Write(testManifest(domain.BackupTypeDatabaseOnly, int64(len(dbContent))), scratch, archivePath), ShouldBeNil)

			Convey("When reading a valid archive", func() {
				out := filepath.Join(tempDir, "extract")
				So(os.MkdirAll(out, 0755), ShouldBeNil)

				manifest, err := codec.Read(archivePath, out)

				Convey("It should return the manifest and the payload", func() {
					So(err, ShouldBeNil)
					So(manifest.Version, ShouldEqual, domain.FormatVersion)
					So(manifest.DatabaseSize, ShouldEqual, int64(len(dbContent)))
					So(manifest.CreatedAt.Equal(time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)), ShouldBeTrue)

					restored, err := os.ReadFile(filepath.Join(out, domain.DatabaseEntry))
					So(err, ShouldBeNil)
					So(restored, ShouldResemble, dbContent)
				})
			})

			Convey("When the file is not an archive", func() {
				blob := filepath.Join(tempDir, "blob.zip")
				So(os.WriteFile(blob, []byte("definitely not a zip"), 0644), ShouldBeNil)

				_, err := codec.Read(blob, t.TempDir())

				Convey("It should return CorruptArchive", func() {
					So(err, ShouldNotBeNil)
					So(domain.KindOf(err), ShouldEqual, domain.KindCorruptArchive)
				})
			})

			Convey("When the manifest is missing", func() {
				noManifest := filepath.Join(tempDir, "nomanifest.zip")
				So(writeRawZip(noManifest, map[string]string{domain.DatabaseEntry: "db"}), ShouldBeNil)

				_, err := codec.Read(noManifest, t.TempDir())

				Convey("It should return InvalidManifest", func() {
					So(domain.KindOf(err), ShouldEqual, domain.KindInvalidManifest)
				})
			})

			Convey("When an entry escapes the extraction directory", func() {
				evil := filepath.Join(tempDir, "evil.zip")
				So(writeRawZip(evil, map[string]string{"../escaped.txt": "x"}), ShouldBeNil)

				_, err := codec.Read(evil, filepath.Join(tempDir, "extract"))

				Convey("It should be rejected as corrupt", func() {
					So(domain.KindOf(err), ShouldEqual, domain.KindCorruptArchive)
					_, statErr := os.Stat(filepath.Join(tempDir, "escaped.txt"))
					So(os.IsNotExist(statErr), ShouldBeTrue)
				})
			})
		})

		Convey("Validate method", func() {
			Convey("When the archive was produced by Write", func() {
				So(codec.Write(testManifest(domain.BackupTypeDatabaseOnly, 3), scratch, archivePath), ShouldBeNil)
				ok, reason := codec.Validate(archivePath)

				So(ok, ShouldBeTrue)
				So(reason, ShouldNotBeEmpty)
			})

			Convey("When given a non-archive blob", func() {
				blob := filepath.Join(tempDir, "blob.zip")
				So(os.WriteFile(blob, []byte{0x01, 0x02, 0x03}, 0644), ShouldBeNil)
				ok, reason := codec.Validate(blob)

				So(ok, ShouldBeFalse)
				So(reason, ShouldContainSubstring, "corrupt")
			})

			Convey("When the manifest lacks created_at", func() {
				path := filepath.Join(tempDir, "nocreated.zip")
				So(writeRawZip(path, map[string]string{
					domain.ManifestEntry: `{"version":"1.0","database_size":2,"backup_type":"full"}`,
					domain.DatabaseEntry: "db",
				}), ShouldBeNil)
				ok, reason := codec.Validate(path)

				So(ok, ShouldBeFalse)
				So(reason, ShouldContainSubstring, "created_at")
			})

			Convey("When database.db is missing", func() {
				path := filepath.Join(tempDir, "nodb.zip")
				So(writeRawZip(path, map[string]string{
					domain.ManifestEntry: `{"created_at":"2026-01-01T00:00:00Z","version":"1.0","database_size":2,"backup_type":"full"}`,
				}), ShouldBeNil)
				ok, reason := codec.Validate(path)

				So(ok, ShouldBeFalse)
				So(reason, ShouldContainSubstring, domain.DatabaseEntry)
			})

			Convey("When the trailer of a valid archive is damaged", func() {
				So(codec.Write(testManifest(domain.BackupTypeDatabaseOnly, 3), scratch, archivePath), ShouldBeNil)
				data, err := os.ReadFile(archivePath)
				So(err, ShouldBeNil)
				data[len(data)-1] ^= 0xFF
				So(os.WriteFile(archivePath, data, 0644), ShouldBeNil)

				ok, reason := codec.Validate(archivePath)

				So(ok, ShouldBeFalse)
				So(reason, ShouldContainSubstring, "corrupt")
			})

			Convey("When a byte of the stored database payload is flipped", func() {
				path := filepath.Join(tempDir, "flipped.zip")
				f, err := os.Create(path)
				So(err, ShouldBeNil)
				zw := zip.NewWriter(f)
				w, err := zw.Create(domain.ManifestEntry)
				So(err, ShouldBeNil)
				_, err = w.Write([]byte(`{"created_at":"2026-01-01T00:00:00Z","version":"1.0","database_size":26,"backup_type":"database_only"}`))
				So(err, ShouldBeNil)
				w, err = zw.CreateHeader(&zip.FileHeader{Name: domain.DatabaseEntry, Method: zip.Store})
				So(err, ShouldBeNil)
				_, err = w.Write([]byte("SQLite format 3\x00 students"))
				So(err, ShouldBeNil)
				So(zw.Close(), ShouldBeNil)
				So(f.Close(), ShouldBeNil)

				zr, err := zip.OpenReader(path)
				So(err, ShouldBeNil)
				var offset int64
				for _, entry := range zr.File {
					if entry.Name == domain.DatabaseEntry {
						offset, err = entry.DataOffset()
						So(err, ShouldBeNil)
					}
				}
				zr.Close()
				So(offset, ShouldBeGreaterThan, 0)

				data, err := os.ReadFile(path)
				So(err, ShouldBeNil)
				data[offset+4] ^= 0xFF
				So(os.WriteFile(path, data, 0644), ShouldBeNil)

				ok, reason := codec.Validate(path)

				So(ok, ShouldBeFalse)
				So(reason, ShouldContainSubstring, "corrupt")
			})

			Convey("When the database does not match the recorded checksum", func() {
				path := filepath.Join(tempDir, "mismatch.zip")
				So(writeRawZip(path, map[string]string{
					domain.ManifestEntry: `{"created_at":"2026-01-01T00:00:00Z","version":"1.0","database_size":2,"backup_type":"full","database_sha256":"00"}`,
					domain.DatabaseEntry: "db",
				}), ShouldBeNil)
				ok, reason := codec.Validate(path)

				So(ok, ShouldBeFalse)
				So(reason, ShouldContainSubstring, "checksum")
			})

			Convey("When the file does not exist", func() {
				ok, _ := codec.Validate(filepath.Join(tempDir, "missing.zip"))
				So(ok, ShouldBeFalse)
			})
		})
	})
}

func TestManifestCodec(t *testing.T) {
	Convey("Given the manifest codec", t, func() {
		Convey("When encoding then decoding", func() {
			m := testManifest(domain.BackupTypeFull, 1024)
			m.DatabaseSHA256 = "abc"
			data, err := EncodeManifest(m)
			So(err, ShouldBeNil)
			So(string(data), ShouldContainSubstring, `"backup_type": "full"`)

			decoded, err := DecodeManifest(data)
			So(err, ShouldBeNil)
			So(decoded.DatabaseSize, ShouldEqual, int64(1024))
			So(decoded.DatabaseSHA256, ShouldEqual, "abc")
		})

		Convey("When decoding a manifest written by the desktop application", func() {
			decoded, err := DecodeManifest([]byte(`{"created_at":"2025-09-14T08:12:33.512000","version":"1.0","database_size":40960,"backup_type":"database_only"}`))

			So(err, ShouldBeNil)
			So(decoded.BackupType, ShouldEqual, domain.BackupTypeDatabaseOnly)
			So(decoded.CreatedAt.Year(), ShouldEqual, 2025)
		})

		Convey("When database_size is zero it is still present", func() {
			_, err := DecodeManifest([]byte(`{"created_at":"2026-01-01T00:00:00Z","version":"1.0","database_size":0,"backup_type":"full"}`))
			So(err, ShouldBeNil)
		})

		Convey("When the backup type is unknown", func() {
			_, err := DecodeManifest([]byte(`{"created_at":"2026-01-01T00:00:00Z","version":"1.0","database_size":1,"backup_type":"partial"}`))
			So(domain.KindOf(err), ShouldEqual, domain.KindInvalidManifest)
		})

		Convey("When the manifest is not JSON", func() {
			_, err := DecodeManifest([]byte("{"))
			So(errors.Is(err, domain.ErrInvalidManifest), ShouldBeTrue)
		})
	})
}
