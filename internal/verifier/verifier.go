// Package verifier checks that users who claimed a subscription reward are
// still members of the channel.
package verifier

import (
	"context"
	"errors"
	"time"

	"github.com/core-coin/rota/internal/metrics"
	"github.com/core-coin/rota/internal/models"
	"github.com/core-coin/rota/pkg/logger"
	"github.com/core-coin/rota/pkg/validation"
)

// Verifier answers whether a user is subscribed to a channel.
// Any failure to get an answer counts as not subscribed.
type Verifier struct {
	logger  *logger.Logger
	lookup  models.MembershipLookup
	timeout time.Duration
}

func NewVerifier(lookup models.MembershipLookup, timeout time.Duration, logger *logger.Logger) *Verifier {
	return &Verifier{
		logger:  logger.With("component", "verifier"),
		lookup:  lookup,
		timeout: timeout,
	}
}

// Verify reports whether userID is a creator, administrator or member of the channel.
func (v *Verifier) Verify(ctx context.Context, userID int64, channelUsername string) bool {
	username, err := validation.ValidateAndNormalizeChannelUsername(channelUsername)
	if err != nil {
		v.logger.Warnw("Invalid channel username", "channel", channelUsername, "error", err)
		metrics.DefaultMetrics.RecordMembershipCheck("invalid")
		return false
	}

	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	status, err := v.lookup.GetMembershipStatus(ctx, username, userID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			v.logger.Warnw("Membership lookup timed out", "channel", username, "user_id", userID)
			metrics.DefaultMetrics.RecordMembershipCheck("timeout")
		} else {
			v.logger.Warnw("Membership lookup failed", "channel", username, "user_id", userID, "error", err)
			metrics.DefaultMetrics.RecordMembershipCheck("error")
		}
		return false
	}

	metrics.DefaultMetrics.RecordMembershipCheck(string(status))
	return status.Subscribed()
}
