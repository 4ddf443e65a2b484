package yolo

import (
	"bufio"
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
)

//go:embed coco.names
var cocoNames []byte

// COCOLabels returns the 80 class names of the stock YOLOv8 weights.
func COCOLabels() []string {
	labels, _ := parseLabels(cocoNames)
	return labels
}

// LoadLabels reads one class name per line. An empty path yields the COCO names.
func LoadLabels(path string) ([]string, error) {
	if path == "" {
		return COCOLabels(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read labels file: %w", err)
	}
	labels, err := parseLabels(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return labels, nil
}

func parseLabels(data []byte) ([]string, error) {
	var labels []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		labels = append(labels, strings.ToLower(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("no labels found")
	}
	return labels, nil
}
