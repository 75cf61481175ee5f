// Package fastq — fastq.go implements suffix and first-record validation
// of gzipped FASTQ files.
package fastq

import (
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/genomic-medicine-sweden/hcpi/internal/model"
)

// ValidSuffix reports whether name carries one of the accepted gzipped
// FASTQ suffixes.
func ValidSuffix(name string) bool {
	return strings.HasSuffix(name, ".fastq.gz") || strings.HasSuffix(name, ".fq.gz")
}

// Validate checks that the file at path is an uploadable FASTQ file: the
// suffix must be accepted and the first record of the gzip stream must
// have the FASTQ shape.
//
// Returns a model.CLIError with ExitValidationError describing the first
// failed check.
func Validate(path string) error {
	if !ValidSuffix(path) {
		return model.NewCLIError(model.ExitValidationError,
			fmt.Sprintf("unsupported file name %q: expected a .fastq.gz or .fq.gz suffix",
				filepath.Base(path)))
	}

	f, err := os.Open(path)
	if err != nil {
		return model.WrapCLIError(model.ExitValidationError,
			fmt.Sprintf("failed to open %s", path), err)
	}
	defer func() { _ = f.Close() }()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return model.WrapCLIError(model.ExitValidationError,
			fmt.Sprintf("%s is not a gzip stream", path), err)
	}
	defer func() { _ = gz.Close() }()

	return checkFirstRecord(path, gz)
}

// checkFirstRecord reads the four lines of the first FASTQ record from r
// and validates their shape. Sequence lines of long-read data can exceed
// any fixed scanner buffer, so lines are read unbounded.
func checkFirstRecord(path string, r io.Reader) error {
	br := bufio.NewReader(r)

	lines := make([]string, 4)
	for i := range lines {
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return model.WrapCLIError(model.ExitValidationError,
				fmt.Sprintf("failed to read %s", path), err)
		}
		if line == "" {
			return model.NewCLIError(model.ExitValidationError,
				fmt.Sprintf("truncated fastq record in %s", path))
		}
		lines[i] = strings.TrimRight(line, "\r\n")
	}

	header, sequence, separator, quality := lines[0], lines[1], lines[2], lines[3]
	switch {
	case !strings.HasPrefix(header, "@"):
		return model.NewCLIError(model.ExitValidationError,
			fmt.Sprintf("%s: fastq header does not start with @", path))
	case sequence == "":
		return model.NewCLIError(model.ExitValidationError,
			fmt.Sprintf("%s: empty sequence line", path))
	case !strings.HasPrefix(separator, "+"):
		return model.NewCLIError(model.ExitValidationError,
			fmt.Sprintf("%s: fastq separator does not start with +", path))
	case len(quality) != len(sequence):
		return model.NewCLIError(model.ExitValidationError,
			fmt.Sprintf("%s: quality length %d does not match sequence length %d",
				path, len(quality), len(sequence)))
	}
	return nil
}
