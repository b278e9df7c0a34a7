package client

import (
	"container/list"
	"io"

	"google.golang.org/grpc"

	"github.com/grafeodb/gwp/gqlerr"
	"github.com/grafeodb/gwp/gqltypes"
	"github.com/grafeodb/gwp/status"
	"github.com/grafeodb/gwp/wire"
)

// Cursor iterates over the streamed results of one Execute call. Frames
// arrive in Header, Batch*, Summary order; NextRow buffers a batch's rows
// in a FIFO queue so callers can pull one row at a time without
// re-receiving.
type Cursor struct {
	stream  grpc.ClientStream
	header  *wire.ResultHeader
	summary *wire.ResultSummary
	pending *list.List // of []gqltypes.Value
	done    bool
}

func newCursor(stream grpc.ClientStream) *Cursor {
	return &Cursor{stream: stream, pending: list.New()}
}

// Header returns the result's column metadata, consuming frames until it is
// found. Returns nil if the stream ends without one.
func (c *Cursor) Header() (*wire.ResultHeader, error) {
	if c.header != nil {
		return c.header, nil
	}
	if err := c.advanceToHeader(); err != nil {
		return nil, err
	}
	return c.header, nil
}

// ColumnNames returns the result's column names.
func (c *Cursor) ColumnNames() ([]string, error) {
	h, err := c.Header()
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, nil
	}
	names := make([]string, len(h.Columns))
	for i, col := range h.Columns {
		names[i] = col.Name
	}
	return names, nil
}

// NextRow returns the next row of results, or (nil, nil) once exhausted.
func (c *Cursor) NextRow() ([]gqltypes.Value, error) {
	if front := c.pending.Front(); front != nil {
		c.pending.Remove(front)
		return front.Value.([]gqltypes.Value), nil
	}
	if c.done {
		return nil, nil
	}

	for {
		resp := new(wire.ExecuteResponse)
		err := c.stream.RecvMsg(resp)
		if err == io.EOF {
			c.done = true
			return nil, nil
		}
		if err != nil {
			return nil, gqlerr.Transport(err)
		}

		switch resp.Frame {
		case wire.FrameHeader:
			c.header = resp.Header
		case wire.FrameRowBatch:
			rows := toValueRows(resp.RowBatch)
			if len(rows) == 0 {
				continue
			}
			first := rows[0]
			for _, r := range rows[1:] {
				c.pending.PushBack(r)
			}
			return first, nil
		case wire.FrameSummary:
			c.summary = resp.Summary
			c.done = true
			return nil, nil
		}
	}
}

func toValueRows(batch *wire.RowBatch) [][]gqltypes.Value {
	if batch == nil {
		return nil
	}
	rows := make([][]gqltypes.Value, len(batch.Rows))
	for i, r := range batch.Rows {
		values := make([]gqltypes.Value, len(r.Values))
		for j, v := range r.Values {
			values[j] = wire.FromWire(v)
		}
		rows[i] = values
	}
	return rows
}

// CollectRows drains the cursor, returning every remaining row.
func (c *Cursor) CollectRows() ([][]gqltypes.Value, error) {
	var all [][]gqltypes.Value
	for {
		row, err := c.NextRow()
		if err != nil {
			return nil, err
		}
		if row == nil && c.done {
			return all, nil
		}
		all = append(all, row)
	}
}

// Summary returns the result summary, consuming any remaining frames first.
func (c *Cursor) Summary() (*wire.ResultSummary, error) {
	if c.summary != nil {
		return c.summary, nil
	}
	for !c.done {
		if _, err := c.NextRow(); err != nil {
			return nil, err
		}
	}
	return c.summary, nil
}

// IsSuccess reports whether the result completed without a GQL exception,
// consuming any remaining frames first.
func (c *Cursor) IsSuccess() (bool, error) {
	summary, err := c.Summary()
	if err != nil {
		return false, err
	}
	if summary == nil || summary.Status == nil {
		return false, nil
	}
	return status.IsSuccess(status.Code(summary.Status.Code)), nil
}

// RowsAffected returns the DML row count, consuming any remaining frames
// first.
func (c *Cursor) RowsAffected() (int64, error) {
	summary, err := c.Summary()
	if err != nil {
		return 0, err
	}
	if summary == nil {
		return 0, nil
	}
	return summary.RowsAffected, nil
}

func (c *Cursor) advanceToHeader() error {
	for !c.done && c.header == nil {
		resp := new(wire.ExecuteResponse)
		err := c.stream.RecvMsg(resp)
		if err == io.EOF {
			c.done = true
			return nil
		}
		if err != nil {
			return gqlerr.Transport(err)
		}
		switch resp.Frame {
		case wire.FrameHeader:
			c.header = resp.Header
		case wire.FrameRowBatch:
			for _, row := range toValueRows(resp.RowBatch) {
				c.pending.PushBack(row)
			}
		case wire.FrameSummary:
			c.summary = resp.Summary
			c.done = true
		}
	}
	return nil
}
