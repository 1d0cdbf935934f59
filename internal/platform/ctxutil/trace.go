package ctxutil

import "context"

type traceDataKey struct{}

// TraceData is the request identity carried through a call chain. Event
// handlers receive an empty RequestID because the originating request is not
// preserved across the event boundary.
type TraceData struct {
	TraceID   string
	RequestID string
	TxID      string
	EventID   string
	EventName string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	val := ctx.Value(traceDataKey{})
	if td, ok := val.(*TraceData); ok {
		return td
	}
	return nil
}

// WithTxID returns a copy of ctx whose trace data also names the transaction.
func WithTxID(ctx context.Context, txID string) context.Context {
	next := TraceData{TxID: txID}
	if td := GetTraceData(ctx); td != nil {
		next = *td
		next.TxID = txID
	}
	return WithTraceData(ctx, &next)
}

// Default returns context.Background() when ctx is nil.
func Default(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
