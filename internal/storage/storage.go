package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/rs/zerolog/log"
)

// ErrNotFound is returned by Open when the asset does not exist.
var ErrNotFound = errors.New("asset not found")

const assetPrefix = "assets"

// Storage holds audio assets such as the Azaan recording.
type Storage interface {
	Open(name string) (io.ReadCloser, error)
	// Save stores the content of r under name, replacing any previous
	// asset, and returns where it was written.
	Save(name string, r io.Reader) (string, error)
}

type LocalStorage struct {
	assetDir string
}

type SpacesStorage struct {
	client   *s3.S3
	bucket   string
	cdnURL   string
	endpoint string
}

func NewLocalStorage(assetDir string) *LocalStorage {
	return &LocalStorage{assetDir: assetDir}
}

func NewSpacesStorage(endpoint, region, bucket, cdnURL, accessKey, secretKey string) (*SpacesStorage, error) {
	config := &aws.Config{
		Credentials:      credentials.NewStaticCredentials(accessKey, secretKey, ""),
		Endpoint:         aws.String(endpoint),
		Region:           aws.String(region),
		S3ForcePathStyle: aws.Bool(false),
	}

	sess, err := session.NewSession(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &SpacesStorage{
		client:   s3.New(sess),
		bucket:   bucket,
		cdnURL:   cdnURL,
		endpoint: endpoint,
	}, nil
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)

// CleanName reduces name to a flat file name without spaces or path
// separators.
func CleanName(name string) (string, error) {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.ReplaceAll(base, " ", "_")
	base = unsafeChars.ReplaceAllString(base, "")
	if base == "" || base == "." || base == ".." || strings.TrimSuffix(base, filepath.Ext(base)) == "" {
		return "", fmt.Errorf("invalid asset name %q", name)
	}
	return base, nil
}

func (ls *LocalStorage) Open(name string) (io.ReadCloser, error) {
	clean, err := CleanName(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(ls.assetDir, clean))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, clean)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open asset: %w", err)
	}
	return f, nil
}

func (ls *LocalStorage) Save(name string, r io.Reader) (string, error) {
	clean, err := CleanName(name)
	if err != nil {
		return "", err
	}
	log.Debug().Str("original", name).Str("normalized", clean).Msg("asset name normalized")

	if err := os.MkdirAll(ls.assetDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create asset directory: %w", err)
	}

	// write next to the target and rename so readers never see a partial file
	tmp, err := os.CreateTemp(ls.assetDir, clean+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create destination file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	target := filepath.Join(ls.assetDir, clean)
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	return target, nil
}

func (ss *SpacesStorage) key(clean string) string {
	return fmt.Sprintf("%s/%s", assetPrefix, clean)
}

func (ss *SpacesStorage) Open(name string) (io.ReadCloser, error) {
	clean, err := CleanName(name)
	if err != nil {
		return nil, err
	}
	out, err := ss.client.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(ss.bucket),
		Key:    aws.String(ss.key(clean)),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == s3.ErrCodeNoSuchKey {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, clean)
		}
		log.Error().Err(err).Msg("Failed to fetch asset from Spaces")
		return nil, fmt.Errorf("failed to fetch from Spaces: %w", err)
	}
	return out.Body, nil
}

func (ss *SpacesStorage) Save(name string, r io.Reader) (string, error) {
	clean, err := CleanName(name)
	if err != nil {
		return "", err
	}

	// PutObject needs a seekable body
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read asset: %w", err)
	}

	key := ss.key(clean)
	_, err = ss.client.PutObject(&s3.PutObjectInput{
		Bucket:      aws.String(ss.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(ContentType(clean)),
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to upload asset to Spaces")
		return "", fmt.Errorf("failed to upload to Spaces: %w", err)
	}

	return fmt.Sprintf("%s/%s", strings.TrimSuffix(ss.cdnURL, "/"), key), nil
}

func ContentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	case ".ogg":
		return "audio/ogg"
	case ".flac":
		return "audio/flac"
	default:
		return "application/octet-stream"
	}
}
