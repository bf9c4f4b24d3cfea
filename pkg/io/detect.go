package io

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/matzehuels/sgtsnepi/pkg/embed"
	"github.com/matzehuels/sgtsnepi/pkg/errors"
)

// detectSample is how many data lines DetectKind inspects.
const detectSample = 64

// DetectKind guesses whether path holds a graph or a point cloud.
//
//   - .mtx and .json files are graphs.
//   - .f64 files are point clouds.
//   - Delimited text is an edge list when every sampled row has two or
//     three fields and the first two are non-negative integers; otherwise
//     it is a point cloud.
func DetectKind(path string) (embed.Kind, error) {
	f, err := FormatFromPath(path)
	if err != nil {
		return embed.KindUnspecified, err
	}
	switch f {
	case FormatMTX, FormatJSON:
		return embed.KindGraph, nil
	case FormatBinary:
		return embed.KindCoordinates, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return embed.KindUnspecified, openError(path, err)
	}
	defer file.Close()

	sc := bufio.NewScanner(file)
	sc.Buffer(make([]byte, 64*1024), 16<<20)
	seen := 0
	for sc.Scan() && seen < detectSample {
		t := strings.TrimSpace(sc.Text())
		if t == "" || t[0] == '#' {
			continue
		}
		fields := splitFields(t, f)
		_, err1 := strconv.ParseUint(fields[0], 10, 0)
		var err2 error
		if len(fields) > 1 {
			_, err2 = strconv.ParseUint(fields[1], 10, 0)
		}
		if seen == 0 && len(fields) > 0 {
			if _, err := strconv.ParseFloat(fields[0], 64); err != nil {
				continue // header
			}
		}
		seen++
		if len(fields) < 2 || len(fields) > 3 || err1 != nil || err2 != nil {
			return embed.KindCoordinates, nil
		}
	}
	if err := sc.Err(); err != nil {
		return embed.KindUnspecified, err
	}
	if seen == 0 {
		return embed.KindUnspecified, errors.New(errors.ErrCodeInvalidInput, "%s: no data rows", path)
	}
	return embed.KindGraph, nil
}

func splitFields(line string, f Format) []string {
	if f == FormatCSV {
		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return strings.Fields(line)
}
