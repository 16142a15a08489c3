package pg

import "fmt"

// InvalidLSN is the zero position, Postgres' InvalidXLogRecPtr.
const InvalidLSN LSN = 0

type LSN uint64

func (lsn LSN) String() string {
	return fmt.Sprintf("%X/%X", uint32(lsn>>32), uint32(lsn))
}

func (lsn LSN) IsValid() bool {
	return lsn != InvalidLSN
}

// Int64 returns the position in the signed form used by stored offsets.
func (lsn LSN) Int64() int64 {
	return int64(lsn)
}

func LSNFromInt64(v int64) LSN {
	return LSN(uint64(v))
}

func ParseLSN(s string) (LSN, error) {
	var upperHalf, lowerHalf uint64

	nparsed, err := fmt.Sscanf(s, "%X/%X", &upperHalf, &lowerHalf)
	if err != nil {
		return 0, fmt.Errorf("lsn parse: %w", err)
	}

	if nparsed != 2 {
		return 0, fmt.Errorf("lsn parse: invalid format: %s", s)
	}

	return LSN((upperHalf << 32) + lowerHalf), nil
}
