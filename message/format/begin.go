package format

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/snapflowio/pgsource/internal/pg"
)

type Begin struct {
	CommitTime time.Time
	FinalLSN   pg.LSN
	XID        uint32
}

func NewBegin(data []byte) (*Begin, error) {
	if len(data) < 21 {
		return nil, fmt.Errorf("begin message length must be at least 21 bytes, but got %d", len(data))
	}

	return &Begin{
		FinalLSN:   pg.LSN(binary.BigEndian.Uint64(data[1:])),
		CommitTime: pg.TimeFromPgMicros(int64(binary.BigEndian.Uint64(data[9:]))),
		XID:        binary.BigEndian.Uint32(data[17:]),
	}, nil
}

type Commit struct {
	CommitTime time.Time
	CommitLSN  pg.LSN
	EndLSN     pg.LSN
	Flags      uint8
}

func NewCommit(data []byte) (*Commit, error) {
	if len(data) < 26 {
		return nil, fmt.Errorf("commit message length must be at least 26 bytes, but got %d", len(data))
	}

	return &Commit{
		Flags:      data[1],
		CommitLSN:  pg.LSN(binary.BigEndian.Uint64(data[2:])),
		EndLSN:     pg.LSN(binary.BigEndian.Uint64(data[10:])),
		CommitTime: pg.TimeFromPgMicros(int64(binary.BigEndian.Uint64(data[18:]))),
	}, nil
}
