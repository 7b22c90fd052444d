package routing

import (
	"errors"
	"os"
	"time"

	"github.com/gocarina/gocsv"
)

func writeCSV(path string, rows any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := gocsv.MarshalFile(rows, f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func readCSV(path string, out any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return gocsv.UnmarshalFile(f, out)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s*1000) * time.Millisecond
}
