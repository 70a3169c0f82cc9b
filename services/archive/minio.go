// Package archivesvc keeps timetable snapshots in S3 compatible object storage.
package archivesvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"

	"github.com/ficct/horarios/core"
	"github.com/ficct/horarios/core/schedule"
	exportsvc "github.com/ficct/horarios/services/export"
)

const rootPrefix = "timetables/"

var NowFunc = time.Now // mockable

// objectStore is the part of *minio.Client the archive needs.
type objectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

// Snapshot is the JSON document archived for a timetable.
type Snapshot struct {
	Term      string             `json:"gestion"`
	Filter    schedule.Filter    `json:"filtro"`
	Timetable schedule.Timetable `json:"horario"`
	TakenAt   time.Time          `json:"fecha"`
}

// Entry is one archived object.
type Entry struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

type Archive struct {
	store  objectStore
	bucket string
	logger core.Logger
}

func NewArchive(conf *core.Config, logger core.Logger) (*Archive, error) {
	client, err := minio.New(conf.Storage.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(conf.Storage.AccessKey, conf.Storage.SecretKey, ""),
		Secure: conf.Storage.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating minio client")
	}
	return &Archive{store: client, bucket: conf.Storage.Bucket, logger: logger}, nil
}

// EnsureBucket creates the bucket when missing.
func (a *Archive) EnsureBucket(ctx context.Context) error {
	ok, err := a.store.BucketExists(ctx, a.bucket)
	if err != nil {
		return errors.Wrap(err, "checking bucket")
	}
	if ok {
		return nil
	}
	return errors.Wrap(a.store.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}), "creating bucket")
}

// Save stores the timetable both as a JSON snapshot and as a workbook and returns the JSON key.
// Keys look like timetables/2025-I/20250301T080000-iddocente-3.json.
func (a *Archive) Save(ctx context.Context, term schedule.AcademicTerm, filter schedule.Filter, tt schedule.Timetable) (string, error) {
	now := NowFunc().UTC()
	base := path.Join(rootPrefix, term.String(), now.Format("20060102T150405")+filterSuffix(filter))

	snap, err := json.Marshal(Snapshot{Term: term.String(), Filter: filter, Timetable: tt, TakenAt: now})
	if err != nil {
		return "", errors.Wrap(err, "encoding snapshot")
	}
	jsonKey := base + ".json"
	if err := a.put(ctx, jsonKey, snap, "application/json"); err != nil {
		return "", err
	}

	var xlsx bytes.Buffer
	if err := exportsvc.WriteXLSX(&xlsx, tt, term.String()); err != nil {
		return "", err
	}
	if err := a.put(ctx, base+".xlsx", xlsx.Bytes(), exportsvc.ContentTypeXLSX); err != nil {
		return "", err
	}

	if a.logger != nil {
		a.logger.Info("timetable archived", map[string]interface{}{"key": jsonKey})
	}
	return jsonKey, nil
}

func (a *Archive) put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := a.store.PutObject(ctx, a.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	return errors.Wrapf(err, "uploading %s", key)
}

// List returns the archived snapshots of a term, newest first. An empty term lists all of them.
func (a *Archive) List(ctx context.Context, term string) ([]Entry, error) {
	prefix := rootPrefix
	if term != "" {
		prefix += term + "/"
	}

	var entries []Entry
	for obj := range a.store.ListObjects(ctx, a.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, errors.Wrap(obj.Err, "listing snapshots")
		}
		if !strings.HasSuffix(obj.Key, ".json") {
			continue
		}
		entries = append(entries, Entry{Key: obj.Key, Size: obj.Size, LastModified: obj.LastModified})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Key > entries[j].Key })
	return entries, nil
}

func filterSuffix(f schedule.Filter) string {
	if key, id := f.Secondary(); key != "" {
		return fmt.Sprintf("-%s-%d", key, id)
	}
	return ""
}
