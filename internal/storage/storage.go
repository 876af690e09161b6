package storage

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ignite/partd-ssri/internal/cleaner"
	"github.com/ignite/partd-ssri/internal/cms"
	"github.com/ignite/partd-ssri/internal/config"
)

var (
	// ErrNotFound is returned when a pipeline artifact does not exist yet,
	// usually because an earlier stage has not run.
	ErrNotFound = errors.New("artifact not found")
)

// The CSV headers are the contract between stages. Readers locate columns
// by name, so column order on disk is not load-bearing; writers still emit
// this exact order.
var (
	rawHeader        = []string{"Gnrc_Name", "Brnd_Name", "Prscrbr_State_Abrvtn", "Tot_Clms"}
	aggregatedHeader = []string{"State_Abrvtn", "Antidepressant_Group", "Tot_Clms"}
)

// Storage persists pipeline artifacts to the local filesystem, with an
// optional mirror of every saved artifact to S3.
type Storage struct {
	config config.StorageConfig
	aws    *AWSStorage
}

// New creates a Storage instance
func New(cfg config.StorageConfig) (*Storage, error) {
	s := &Storage{config: cfg}

	switch cfg.Type {
	case "aws":
		awsStorage, err := NewAWSStorage(context.Background(), cfg.S3Bucket, cfg.S3Prefix, cfg.AWSRegion, cfg.GetAWSProfile())
		if err != nil {
			return nil, fmt.Errorf("initializing AWS storage: %w", err)
		}
		s.aws = awsStorage
	case "local":
		// Directories are created on first save.
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}

	return s, nil
}

// SaveRaw writes the raw extract CSV.
func (s *Storage) SaveRaw(ctx context.Context, path string, records []cms.RawRecord) error {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{rec.GenericName, rec.BrandName, rec.State, rec.TotalClaims})
	}
	if err := writeCSV(path, rawHeader, rows); err != nil {
		return fmt.Errorf("failed to save raw CSV: %w", err)
	}
	s.mirror(ctx, path)
	return nil
}

// LoadRaw reads the raw extract CSV. A missing file maps to ErrNotFound so
// callers can tell the operator which stage to run first.
func (s *Storage) LoadRaw(path string) ([]cms.RawRecord, error) {
	cols, rows, err := readCSV(path, rawHeader)
	if err != nil {
		return nil, err
	}

	records := make([]cms.RawRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, cms.RawRecord{
			GenericName: row[cols["Gnrc_Name"]],
			BrandName:   row[cols["Brnd_Name"]],
			State:       row[cols["Prscrbr_State_Abrvtn"]],
			TotalClaims: row[cols["Tot_Clms"]],
		})
	}
	return records, nil
}

// SaveAggregated writes the cleaned and aggregated CSV.
func (s *Storage) SaveAggregated(ctx context.Context, path string, records []cleaner.AggregatedRecord) error {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{rec.State, rec.Group, strconv.FormatInt(rec.TotalClaims, 10)})
	}
	if err := writeCSV(path, aggregatedHeader, rows); err != nil {
		return fmt.Errorf("failed to save aggregated CSV: %w", err)
	}
	s.mirror(ctx, path)
	return nil
}

// LoadAggregated reads the cleaned and aggregated CSV.
func (s *Storage) LoadAggregated(path string) ([]cleaner.AggregatedRecord, error) {
	cols, rows, err := readCSV(path, aggregatedHeader)
	if err != nil {
		return nil, err
	}

	records := make([]cleaner.AggregatedRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, cleaner.AggregatedRecord{
			State:       row[cols["State_Abrvtn"]],
			Group:       row[cols["Antidepressant_Group"]],
			TotalClaims: cleaner.CoerceClaims(row[cols["Tot_Clms"]]),
		})
	}
	return records, nil
}

// SaveManifest writes the fetch manifest as indented JSON.
func (s *Storage) SaveManifest(ctx context.Context, path string, m cms.Manifest) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to save manifest: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(m); err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	s.mirror(ctx, path)
	return nil
}

// LoadManifest reads the fetch manifest.
func (s *Storage) LoadManifest(path string) (*cms.Manifest, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, err
	}
	defer file.Close()

	var m cms.Manifest
	if err := json.NewDecoder(file).Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	return &m, nil
}

// Mirror uploads one local artifact to the configured bucket. It is a no-op
// for local-only storage. The local file is already on disk, so callers
// treat a failed upload as a warning.
func (s *Storage) Mirror(ctx context.Context, localPath string) error {
	if s.aws == nil {
		return nil
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("failed to read %s for mirroring: %w", localPath, err)
	}
	return s.aws.Upload(ctx, mirrorKey(localPath), data, contentTypeFor(localPath))
}

func (s *Storage) mirror(ctx context.Context, localPath string) {
	if s.aws == nil {
		return
	}
	if err := s.Mirror(ctx, localPath); err != nil {
		log.Printf("[storage] s3 mirror of %s failed: %v", localPath, err)
	}
}

// mirrorKey maps a local artifact path to its bucket key. Relative paths
// keep their directory layout; absolute paths mirror under their base name.
func mirrorKey(localPath string) string {
	if filepath.IsAbs(localPath) {
		return filepath.Base(localPath)
	}
	return filepath.ToSlash(filepath.Clean(localPath))
}

func contentTypeFor(localPath string) string {
	switch strings.ToLower(filepath.Ext(localPath)) {
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	case ".png":
		return "image/png"
	case ".md":
		return "text/markdown"
	default:
		return "application/octet-stream"
	}
}

func writeCSV(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(header); err != nil {
		return err
	}
	return w.WriteAll(rows)
}

// readCSV opens a CSV, verifies the wanted columns exist, and returns the
// name-to-index mapping plus the data rows.
func readCSV(path string, want []string) (map[string]int, [][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil, fmt.Errorf("%s has no header row", path)
		}
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, name := range want {
		if _, ok := cols[name]; !ok {
			return nil, nil, fmt.Errorf("%s is missing column %s", path, name)
		}
	}

	rows, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return cols, rows, nil
}
