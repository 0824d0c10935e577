package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/blobsim/internal/sim"
)

type ExportData struct {
	RunMetadata
	Steps  int         `json:"steps"`
	Times  []float64   `json:"times"`
	States [][]float64 `json:"states"`
}

func newExportData(meta RunMetadata, result *sim.Result) ExportData {
	meta.StepsTaken = result.StepsTaken
	meta.Retries = result.Retries
	meta.Metrics = result.Metrics

	data := ExportData{
		RunMetadata: meta,
		Steps:       len(result.Times),
		Times:       result.Times,
		States:      make([][]float64, len(result.States)),
	}
	for i, s := range result.States {
		data.States[i] = s
	}
	return data
}

func ExportJSON(path string, meta RunMetadata, result *sim.Result) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := ExportJSONTo(file, meta, result); err != nil {
		return err
	}
	return file.Close()
}

func ExportJSONTo(w io.Writer, meta RunMetadata, result *sim.Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(newExportData(meta, result))
}
