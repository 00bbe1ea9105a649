package eventbus

import (
	"fmt"

	"github.com/colonyops/lens/internal/core/review"
)

// NotificationRouter maps domain events to user-facing notices.
type NotificationRouter struct {
	bus *EventBus
}

// NewNotificationRouter constructs a router for event-to-notice mappings.
func NewNotificationRouter(bus *EventBus) *NotificationRouter {
	return &NotificationRouter{bus: bus}
}

// Register subscribes all supported event mappings.
func (r *NotificationRouter) Register() {
	if r == nil || r.bus == nil {
		return
	}

	r.bus.SubscribeReviewFailed(func(p ReviewFailedPayload) {
		r.notifyf(NoticeError, "review failed: %s", p.Detail)
	})

	r.bus.SubscribeSessionDeleted(func(p SessionDeletedPayload) {
		r.notifyf(NoticeInfo, "session %s deleted", p.SessionID)
	})

	r.bus.SubscribeResponseDiscarded(func(p ResponseDiscardedPayload) {
		r.notifyf(NoticeWarning, "ignored a late %s response for session %s", p.Slot, p.SessionID)
	})

	r.bus.SubscribeReplyReceived(func(p ReplyReceivedPayload) {
		if p.Failed {
			r.notifyf(NoticeWarning, "follow-up for session %s failed", p.SessionID)
		}
	})

	r.bus.SubscribeDraftFormatted(func(p DraftFormattedPayload) {
		if !p.Applied {
			r.notifyf(NoticeWarning, "formatted code not applied: the draft changed")
		}
	})

	r.bus.SubscribeArtifactReady(func(p ArtifactReadyPayload) {
		label := "fixed code"
		if p.Kind == review.ArtifactTests {
			label = "generated tests"
		}
		r.notifyf(NoticeInfo, "%s ready for session %s", label, p.SessionID)
	})
}

func (r *NotificationRouter) notifyf(level NoticeLevel, format string, args ...any) {
	r.bus.PublishNoticePublished(NoticePublishedPayload{
		Level:   level,
		Message: fmt.Sprintf(format, args...),
	})
}
