package metrics

import (
	"errors"

	prom "github.com/prometheus/client_golang/prometheus"
)

// WriteTextfile writes every metric in g to path in the text exposition format,
// suitable for the node_exporter textfile collector. The write is atomic.
func WriteTextfile(path string, g prom.Gatherer) error {
	if path == "" {
		return errors.New("metrics textfile path is required")
	}
	if g == nil {
		return errors.New("nil gatherer")
	}
	return prom.WriteToTextfile(path, g)
}
