package ledger

import (
	"strconv"
	"sync/atomic"

	"github.com/bdlandchain/landchain-cli/internal/domain"
	"github.com/bdlandchain/landchain-cli/internal/ports"
)

// surveySuffixer makes every submitted survey number unique within the session.
type surveySuffixer struct {
	clock ports.Clock
	seq   atomic.Uint64
}

func (s *surveySuffixer) Next() string {
	seq := s.seq.Add(1)
	millis := s.clock.Now().UnixMilli()

	return domain.SurveySuffixSeparator +
		strconv.FormatInt(millis, 36) + "." + strconv.FormatUint(seq, 36)
}
