package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"vibeguard/internal/storage"
)

// Export renders recorded risk samples as CSV and/or PNG.
func (a *App) Export(_ context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	samples, err := a.sampleStore().Load()
	if err != nil {
		return err
	}

	samples = filterSamples(samples, opts.From, opts.To)
	if len(samples) == 0 {
		a.Logger.Info().Msg("no samples found for export window")
		return nil
	}

	downsampled := downsampleSamples(samples, opts.MaxPoints)
	a.Logger.Info().Int("total", len(samples)).Int("exported", len(downsampled)).Msg("exporting samples")

	if opts.CSVPath != "" {
		if err := writeSamplesCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeSamplesPNG(opts.PNGPath, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func filterSamples(samples []storage.RiskSample, from, to *time.Time) []storage.RiskSample {
	if from == nil && to == nil {
		return samples
	}
	out := make([]storage.RiskSample, 0, len(samples))
	for _, sample := range samples {
		ts := time.UnixMilli(sample.Timestamp)
		if from != nil && ts.Before(*from) {
			continue
		}
		if to != nil && !ts.Before(*to) {
			continue
		}
		out = append(out, sample)
	}
	return out
}

func downsampleSamples(samples []storage.RiskSample, max int) []storage.RiskSample {
	if max <= 0 || len(samples) <= max {
		return samples
	}

	result := make([]storage.RiskSample, 0, max)
	step := float64(len(samples)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(samples) {
			idx = len(samples) - 1
		}
		result = append(result, samples[idx])
	}
	return result
}

func writeSamplesCSV(path string, samples []storage.RiskSample) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"timestamp", "token", "sentiment_score", "risk_score", "should_exit"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, sample := range samples {
		record := []string{
			time.UnixMilli(sample.Timestamp).UTC().Format(time.RFC3339),
			sample.Token,
			strconv.FormatFloat(sample.SentimentScore, 'f', 1, 64),
			strconv.Itoa(sample.RiskScore),
			strconv.FormatBool(sample.ShouldExit),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeSamplesPNG(path string, samples []storage.RiskSample) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(samples))
	sentiment := make([]float64, len(samples))
	riskScores := make([]float64, len(samples))

	for i, sample := range samples {
		x[i] = time.UnixMilli(sample.Timestamp).UTC()
		sentiment[i] = sample.SentimentScore
		riskScores[i] = float64(sample.RiskScore)
	}

	scoreFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.0f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Score (0-100)",
			ValueFormatter: scoreFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Sentiment",
				XValues: x,
				YValues: sentiment,
			},
			chart.TimeSeries{
				Name:    "Risk",
				XValues: x,
				YValues: riskScores,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
