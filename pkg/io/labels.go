package io

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/matzehuels/sgtsnepi/pkg/errors"
)

// ReadLabels decodes one integer label per line, or a Matrix Market n×1
// array.
func ReadLabels(r io.Reader) ([]int, error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(len(mtxBanner))
	if bytes.EqualFold(head, []byte(mtxBanner)) {
		vals, _, cols, err := ReadMatrixMarketArray(br)
		if err != nil {
			return nil, err
		}
		if cols != 1 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "labels must be a single column, got %d", cols)
		}
		labels := make([]int, len(vals))
		for i, v := range vals {
			if v != math.Trunc(v) {
				return nil, errors.New(errors.ErrCodeInvalidInput, "label %d is not an integer: %v", i, v)
			}
			labels[i] = int(v)
		}
		return labels, nil
	}

	var labels []int
	sc := bufio.NewScanner(br)
	line := 0
	for sc.Scan() {
		line++
		t := strings.TrimSpace(sc.Text())
		if t == "" || t[0] == '#' {
			continue
		}
		v, err := strconv.Atoi(t)
		if err != nil {
			if len(labels) == 0 {
				continue // header
			}
			return nil, errors.New(errors.ErrCodeInvalidFormat, "line %d: bad label %q", line, t)
		}
		labels = append(labels, v)
	}
	return labels, sc.Err()
}

// ImportLabels reads a label file.
func ImportLabels(path string) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, openError(path, err)
	}
	defer f.Close()
	l, err := ReadLabels(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return l, nil
}
