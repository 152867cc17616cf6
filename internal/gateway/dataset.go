// Package gateway loads repository datasets from disk,
// abstracting away the file formats and the join of the two sources.
package gateway

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/naka-gawa/repostats/internal/domain"
	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"
)

// Loader defines the behavior of a gateway that turns dataset files into a table.
type Loader interface {
	// Load reads one file, or two files joined on repository name.
	Load(ctx context.Context, paths ...string) (*domain.Table, error)
}

// FileGateway is the concrete implementation of the Loader interface
// for CSV and XLSX files on the local filesystem.
type FileGateway struct {
	logger *log.Logger
}

// NewFileGateway is a constructor that creates a new instance of FileGateway.
func NewFileGateway(logger *log.Logger) *FileGateway {
	return &FileGateway{logger: logger}
}

// Load reads the files at paths. The first file must carry the primary
// repository columns, the second (if any) the secondary ones; the two are
// outer joined on repositories = name. Any failure is a *domain.DataLoadError.
func (g *FileGateway) Load(ctx context.Context, paths ...string) (*domain.Table, error) {
	switch len(paths) {
	case 1, 2:
	default:
		return nil, &domain.DataLoadError{
			Path: strings.Join(paths, ","),
			Err:  fmt.Errorf("expected 1 or 2 dataset files, got %d", len(paths)),
		}
	}
	required := [][]string{domain.PrimaryColumns, domain.SecondaryColumns}

	frames := make([]dataframe.DataFrame, len(paths))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, path := range paths {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return &domain.DataLoadError{Path: path, Err: err}
			}
			g.logger.Printf("[%d/%d] Reading %s...", i+1, len(paths), path)
			df, err := readFrame(path)
			if err != nil {
				return err
			}
			if err := requireColumns(path, df.Names(), required[i]); err != nil {
				return err
			}
			g.logger.Printf("  %s: %d rows, %d columns", path, df.Nrow(), df.Ncol())
			frames[i] = df
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	df := frames[0]
	if len(frames) == 2 {
		df = outerJoin(frames[0], frames[1])
		if df.Err != nil {
			return nil, &domain.DataLoadError{Path: strings.Join(paths, ","), Err: fmt.Errorf("join: %w", df.Err)}
		}
		g.logger.Printf("Joined datasets: %d rows", df.Nrow())
	}

	records := df.Records()
	header, rows := records[0], records[1:]
	g.normalizeTimestamps(header, rows)

	table, err := domain.NewTable(header, rows)
	if err != nil {
		return nil, &domain.DataLoadError{Path: strings.Join(paths, ","), Err: err}
	}
	g.logger.Println("Completed loading dataset.")
	return table, nil
}

// readFrame reads every column as text; numeric interpretation is left to
// the views so that one bad cell cannot fail the whole load. A file holding
// only its header yields a frame with those columns and no rows.
func readFrame(path string) (dataframe.DataFrame, error) {
	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		records, err = readXLSX(path)
	default:
		records, err = readCSV(path)
	}
	if err != nil {
		return dataframe.DataFrame{}, &domain.DataLoadError{Path: path, Err: err}
	}

	var df dataframe.DataFrame
	if len(records) == 1 {
		df = emptyFrame(records[0])
	} else {
		df = dataframe.LoadRecords(records,
			dataframe.HasHeader(true),
			dataframe.DetectTypes(false),
			dataframe.DefaultType(series.String),
		)
	}
	if df.Err != nil {
		return df, &domain.DataLoadError{Path: path, Err: df.Err}
	}
	return df, nil
}

// emptyFrame builds a zero-row frame of string columns. LoadRecords refuses
// header-only input.
func emptyFrame(header []string) dataframe.DataFrame {
	cols := make([]series.Series, len(header))
	for i, name := range header {
		cols[i] = series.New([]string{}, series.String, name)
	}
	return dataframe.New(cols...)
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("file is empty")
	}
	return records, nil
}

// readXLSX returns the first sheet as records padded to the header width.
func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %s is empty", sheets[0])
	}
	width := len(rows[0])
	for i, row := range rows {
		switch {
		case len(row) < width:
			rows[i] = append(row, make([]string, width-len(row))...)
		case len(row) > width:
			rows[i] = row[:width]
		}
	}
	return rows, nil
}

func requireColumns(path string, have, want []string) error {
	present := make(map[string]bool, len(have))
	for _, c := range have {
		present[strings.TrimSpace(c)] = true
	}
	for _, c := range want {
		if !present[c] {
			return &domain.DataLoadError{Path: path, Column: c}
		}
	}
	return nil
}

// outerJoin merges right into left on left.repositories = right.name, keeping
// unmatched rows of both sides. Non-key columns found in both frames are
// suffixed _x (left) and _y (right).
func outerJoin(left, right dataframe.DataFrame) dataframe.DataFrame {
	inLeft := make(map[string]bool)
	for _, c := range left.Names() {
		inLeft[c] = true
	}
	for _, c := range right.Names() {
		switch {
		case c == domain.ColName:
		case c == domain.ColRepositories:
			right = right.Rename(c+"_y", c)
		case inLeft[c]:
			left = left.Rename(c+"_x", c)
			right = right.Rename(c+"_y", c)
		}
	}
	right = right.Rename(domain.ColRepositories, domain.ColName)
	return left.OuterJoin(right, domain.ColRepositories)
}

// normalizeTimestamps rewrites every created_at cell as RFC 3339. Cells that
// do not parse are cleared and logged rather than failing the load.
func (g *FileGateway) normalizeTimestamps(header []string, rows [][]string) {
	for j, c := range header {
		switch c {
		case domain.ColCreatedAt, domain.ColCreatedAt + "_x", domain.ColCreatedAt + "_y":
		default:
			continue
		}
		for i, row := range rows {
			if domain.IsMissing(row[j]) {
				continue
			}
			ts, ok := domain.ParseTime(row[j])
			if !ok {
				g.logger.Printf("  row %d: unparsable %s %q treated as missing", i, c, row[j])
				row[j] = ""
				continue
			}
			row[j] = ts.Format(time.RFC3339)
		}
	}
}
