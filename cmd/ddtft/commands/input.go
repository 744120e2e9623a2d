package commands

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ddtft/internal/port"
	"ddtft/internal/service"
)

func isPDF(path string, data []byte) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf") || bytes.HasPrefix(data, []byte("%PDF"))
}

// readInput loads one document. PDF text is rebuilt with the text source;
// other files are used as they are.
func readInput(ctx context.Context, source port.TextSource, path string) (service.ExtractInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return service.ExtractInput{}, err
	}
	in := service.ExtractInput{FileName: filepath.Base(path), Source: data, CreatedBy: "cli"}
	if !isPDF(path, data) {
		in.Text = string(data)
		return in, nil
	}
	src, err := source.ExtractText(ctx, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return in, fmt.Errorf("%s: %w", path, err)
	}
	in.Text = src.Text
	in.Hints = src.Hints
	return in, nil
}

// expandInputs resolves directories to the files they directly contain.
func expandInputs(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.Type().IsRegular() && !strings.HasPrefix(e.Name(), ".") {
				files = append(files, filepath.Join(arg, e.Name()))
			}
		}
	}
	return files, nil
}
