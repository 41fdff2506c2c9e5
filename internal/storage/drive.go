package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const processedFolderName = "processed"

// RecordingFile is an audio recording waiting in the source Drive folder
type RecordingFile struct {
	ID          string
	Name        string
	CreatedTime time.Time
}

// DriveClient lists, downloads and archives recordings in a Drive folder.
// The processed-folder id is resolved once and cached on the client.
type DriveClient struct {
	service           *drive.Service
	sourceFolderID    string
	processedFolderID string
}

// NewDriveClient creates a Drive client. A service-account credentials file is
// preferred; otherwise the OAuth credentials/token file pair is used.
func NewDriveClient(ctx context.Context, serviceAccountFile, credentialsFile, tokenFile, sourceFolderID string) (*DriveClient, error) {
	var srv *drive.Service
	var err error

	if serviceAccountFile != "" {
		if _, statErr := os.Stat(serviceAccountFile); statErr == nil {
			srv, err = drive.NewService(ctx,
				option.WithCredentialsFile(serviceAccountFile),
				option.WithScopes(drive.DriveScope),
			)
			if err != nil {
				return nil, fmt.Errorf("unable to create Drive service from service account: %w", err)
			}
		}
	}

	if srv == nil {
		b, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("unable to read credentials file: %w", err)
		}
		oauthConfig, err := google.ConfigFromJSON(b, drive.DriveScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse credentials: %w", err)
		}
		client, err := clientFromToken(ctx, oauthConfig, tokenFile)
		if err != nil {
			return nil, err
		}
		srv, err = drive.NewService(ctx, option.WithHTTPClient(client))
		if err != nil {
			return nil, fmt.Errorf("unable to create Drive service: %w", err)
		}
	}

	return &DriveClient{
		service:        srv,
		sourceFolderID: sourceFolderID,
	}, nil
}

// clientFromToken builds an HTTP client from a cached OAuth token file
func clientFromToken(ctx context.Context, config *oauth2.Config, tokenFile string) (*http.Client, error) {
	f, err := os.Open(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read token file %s (run the authorization flow first): %w", tokenFile, err)
	}
	defer f.Close()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("unable to parse token file %s: %w", tokenFile, err)
	}
	return config.Client(ctx, tok), nil
}

// ListRecordings returns the .m4a recordings in the source folder
func (dc *DriveClient) ListRecordings(ctx context.Context) ([]RecordingFile, error) {
	query := fmt.Sprintf(
		"'%s' in parents and (name contains '.m4a' or name contains '.M4A') "+
			"and mimeType != 'application/vnd.google-apps.folder' and trashed = false",
		dc.sourceFolderID)

	r, err := dc.service.Files.List().
		Context(ctx).
		Q(query).
		Fields("files(id, name, createdTime)").
		Do()
	if err != nil {
		return nil, fmt.Errorf("drive list failed: %w", err)
	}

	files := make([]RecordingFile, 0, len(r.Files))
	for _, f := range r.Files {
		created, parseErr := time.Parse(time.RFC3339, f.CreatedTime)
		if parseErr != nil {
			created = time.Now().UTC()
		}
		files = append(files, RecordingFile{ID: f.Id, Name: f.Name, CreatedTime: created.UTC()})
	}
	return files, nil
}

// Download writes the file's content to dstPath
func (dc *DriveClient) Download(ctx context.Context, fileID, dstPath string) error {
	resp, err := dc.service.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return fmt.Errorf("drive download failed for %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	out, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dstPath, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("failed to write %s: %w", dstPath, err)
	}
	return nil
}

// ensureProcessedFolder finds or creates the processed folder under the source
// folder, caching its id for the lifetime of the client.
func (dc *DriveClient) ensureProcessedFolder(ctx context.Context) (string, error) {
	if dc.processedFolderID != "" {
		return dc.processedFolderID, nil
	}

	query := fmt.Sprintf(
		"'%s' in parents and name = '%s' and mimeType = 'application/vnd.google-apps.folder' and trashed = false",
		dc.sourceFolderID, processedFolderName)

	r, err := dc.service.Files.List().
		Context(ctx).
		Q(query).
		Fields("files(id)").
		PageSize(1).
		Do()
	if err == nil && len(r.Files) > 0 {
		dc.processedFolderID = r.Files[0].Id
		return dc.processedFolderID, nil
	}

	folder := &drive.File{
		Name:     processedFolderName,
		MimeType: "application/vnd.google-apps.folder",
		Parents:  []string{dc.sourceFolderID},
	}
	created, err := dc.service.Files.Create(folder).Context(ctx).Fields("id").Do()
	if err != nil {
		return "", fmt.Errorf("unable to create processed folder: %w", err)
	}
	dc.processedFolderID = created.Id
	return dc.processedFolderID, nil
}

// MoveToProcessed moves a handled recording into the processed folder
func (dc *DriveClient) MoveToProcessed(ctx context.Context, fileID string) error {
	folderID, err := dc.ensureProcessedFolder(ctx)
	if err != nil {
		return err
	}

	_, err = dc.service.Files.Update(fileID, nil).
		Context(ctx).
		AddParents(folderID).
		RemoveParents(dc.sourceFolderID).
		Fields("id, parents").
		Do()
	if err != nil {
		return fmt.Errorf("failed to move file %s to processed: %w", fileID, err)
	}
	return nil
}
