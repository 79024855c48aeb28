// Package ingest loads scheduled digest jobs from CSV.
package ingest

import (
	"bufio"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/pizzanicky/BettaFish4WGD/internal/crawlconf"
	"github.com/pizzanicky/BettaFish4WGD/internal/domain"
)

// LoadJobs reads keyword,max_count,window_hours rows from path. The header
// row is skipped. Blank numeric columns take the given defaults; rows with an
// invalid keyword or a malformed number are skipped (fail-soft).
func LoadJobs(path string, defaultMax, defaultHours int) ([]domain.Job, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadJobs(f, defaultMax, defaultHours)
}

// ReadJobs is LoadJobs over an arbitrary reader.
func ReadJobs(src io.Reader, defaultMax, defaultHours int) ([]domain.Job, error) {
	r := csv.NewReader(stripBOM(src))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var jobs []domain.Job
	line := 0
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			slog.Warn("Skipping unreadable job row", "line", line, "error", err)
			continue
		}
		if line == 1 {
			continue // header
		}

		job, ok := parseJob(record, defaultMax, defaultHours)
		if !ok {
			slog.Warn("Skipping invalid job row", "line", line, "row", strings.Join(record, ","))
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func parseJob(record []string, defaultMax, defaultHours int) (domain.Job, bool) {
	keyword := strings.TrimSpace(record[0])
	if crawlconf.ValidateKeyword(keyword) != nil {
		return domain.Job{}, false
	}
	maxCount, ok := column(record, 1, defaultMax)
	if !ok {
		return domain.Job{}, false
	}
	hours, ok := column(record, 2, defaultHours)
	if !ok {
		return domain.Job{}, false
	}
	return domain.Job{Keyword: keyword, MaxCount: maxCount, WindowHours: hours}, true
}

func column(record []string, i, def int) (int, bool) {
	if i >= len(record) || strings.TrimSpace(record[i]) == "" {
		return def, true
	}
	n, err := strconv.Atoi(strings.TrimSpace(record[i]))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func stripBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	rdr, _, err := br.ReadRune()
	if err != nil {
		return br
	}
	if rdr != '\uFEFF' {
		_ = br.UnreadRune()
	}
	return br
}
