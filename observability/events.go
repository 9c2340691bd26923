package observability

import (
	"errors"
	"log/slog"
	"math"
	"strconv"

	"escrowd/core/events"
	"escrowd/core/types"
)

// payloadCarrier is satisfied by engine events that expose their structured
// attribute payload in addition to the bare type.
type payloadCarrier interface {
	Event() *types.Event
}

// Recorder is an events.Emitter that mirrors engine events into the
// structured log and the Prometheus registry.
type Recorder struct {
	log     *slog.Logger
	metrics *EscrowMetrics
}

func NewRecorder(log *slog.Logger) *Recorder {
	return &Recorder{log: log, metrics: Escrow()}
}

// Emit implements events.Emitter.
func (r *Recorder) Emit(evt events.Event) {
	if r == nil || evt == nil {
		return
	}
	attrs := map[string]string{}
	if carrier, ok := evt.(payloadCarrier); ok {
		if payload := carrier.Event(); payload != nil {
			attrs = payload.Attributes
		}
	}
	if r.log != nil {
		args := make([]any, 0, 2*len(attrs))
		for k, v := range attrs {
			args = append(args, k, v)
		}
		r.log.Info(evt.EventType(), args...)
	}
	if fee, ok := attrs["fee"]; ok {
		r.metrics.ObserveFee(feeUnits(fee))
	}
}

// feeUnits parses a decimal fee amount for the metrics counter. Amounts that
// overflow a float64 are clamped to MaxFloat64 so the counter still moves;
// malformed values report zero and are ignored by ObserveFee.
func feeUnits(value string) float64 {
	units, err := strconv.ParseFloat(value, 64)
	if err == nil {
		return units
	}
	if errors.Is(err, strconv.ErrRange) && units > 0 {
		return math.MaxFloat64
	}
	return 0
}
