package storage

import (
	"context"
	"fmt"
	"os"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/KMINALI2005/School-management-system/internal/config"
)

// GDriveStorage mirrors archives into one Google Drive folder.
type GDriveStorage struct {
	service  *drive.Service
	folderID string
}

func NewGDrive(ctx context.Context, cfg *config.UploadTarget) (*GDriveStorage, error) {
	if cfg.FolderID == "" {
		return nil, fmt.Errorf("gdrive folder_id is required")
	}

	service, err := drive.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	return &GDriveStorage{
		service:  service,
		folderID: cfg.FolderID,
	}, nil
}

func (g *GDriveStorage) Upload(ctx context.Context, localPath string, remoteName string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	fileMetadata := &drive.File{
		Name:     remoteName,
		Parents:  []string{g.folderID},
		MimeType: "application/zip",
	}

	_, err = g.service.Files.Create(fileMetadata).
		Media(file).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to upload to gdrive: %w", err)
	}

	return nil
}

func (g *GDriveStorage) List(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf("'%s' in parents and trashed=false", g.folderID)

	var files []string
	err := g.service.Files.List().
		Q(query).
		Fields("nextPageToken, files(id, name)").
		Context(ctx).
		Pages(ctx, func(page *drive.FileList) error {
			for _, file := range page.Files {
				files = append(files, file.Name)
			}
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	return files, nil
}

func (g *GDriveStorage) Delete(ctx context.Context, remoteName string) error {
	query := fmt.Sprintf("'%s' in parents and name='%s' and trashed=false",
		g.folderID, strings.ReplaceAll(remoteName, "'", `\'`))

	fileList, err := g.service.Files.List().
		Q(query).
		Fields("files(id)").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to find file: %w", err)
	}

	if len(fileList.Files) == 0 {
		return fmt.Errorf("file not found: %s", remoteName)
	}

	err = g.service.Files.Delete(fileList.Files[0].Id).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}
