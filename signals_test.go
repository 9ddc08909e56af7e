package ripple

import "testing"

func TestQueryStarted(t *testing.T) {
	if QueryStarted.Name() != "ripple.query.started" {
		t.Errorf("expected name 'ripple.query.started', got %q", QueryStarted.Name())
	}
}

func TestQuerySkipped(t *testing.T) {
	if QuerySkipped.Name() != "ripple.query.skipped" {
		t.Errorf("expected name 'ripple.query.skipped', got %q", QuerySkipped.Name())
	}
}

func TestQueryResolved(t *testing.T) {
	if QueryResolved.Name() != "ripple.query.resolved" {
		t.Errorf("expected name 'ripple.query.resolved', got %q", QueryResolved.Name())
	}
}

func TestQueryRejected(t *testing.T) {
	if QueryRejected.Name() != "ripple.query.rejected" {
		t.Errorf("expected name 'ripple.query.rejected', got %q", QueryRejected.Name())
	}
}

func TestQuerySuperseded(t *testing.T) {
	if QuerySuperseded.Name() != "ripple.query.superseded" {
		t.Errorf("expected name 'ripple.query.superseded', got %q", QuerySuperseded.Name())
	}
}

func TestQueryStateChanged(t *testing.T) {
	if QueryStateChanged.Name() != "ripple.query.state.changed" {
		t.Errorf("expected name 'ripple.query.state.changed', got %q", QueryStateChanged.Name())
	}
}

func TestFeedStarted(t *testing.T) {
	if FeedStarted.Name() != "ripple.feed.started" {
		t.Errorf("expected name 'ripple.feed.started', got %q", FeedStarted.Name())
	}
}

func TestFeedStopped(t *testing.T) {
	if FeedStopped.Name() != "ripple.feed.stopped" {
		t.Errorf("expected name 'ripple.feed.stopped', got %q", FeedStopped.Name())
	}
}

func TestFeedChangeReceived(t *testing.T) {
	if FeedChangeReceived.Name() != "ripple.feed.change.received" {
		t.Errorf("expected name 'ripple.feed.change.received', got %q", FeedChangeReceived.Name())
	}
}

func TestFeedDecodeFailed(t *testing.T) {
	if FeedDecodeFailed.Name() != "ripple.feed.decode.failed" {
		t.Errorf("expected name 'ripple.feed.decode.failed', got %q", FeedDecodeFailed.Name())
	}
}

func TestFeedValidationFailed(t *testing.T) {
	if FeedValidationFailed.Name() != "ripple.feed.validation.failed" {
		t.Errorf("expected name 'ripple.feed.validation.failed', got %q", FeedValidationFailed.Name())
	}
}

func TestFeedApplyFailed(t *testing.T) {
	if FeedApplyFailed.Name() != "ripple.feed.apply.failed" {
		t.Errorf("expected name 'ripple.feed.apply.failed', got %q", FeedApplyFailed.Name())
	}
}

func TestFeedApplySucceeded(t *testing.T) {
	if FeedApplySucceeded.Name() != "ripple.feed.apply.succeeded" {
		t.Errorf("expected name 'ripple.feed.apply.succeeded', got %q", FeedApplySucceeded.Name())
	}
}

func TestCollectionReset(t *testing.T) {
	if CollectionReset.Name() != "ripple.collection.reset" {
		t.Errorf("expected name 'ripple.collection.reset', got %q", CollectionReset.Name())
	}
}

func TestGuardArmed(t *testing.T) {
	if GuardArmed.Name() != "ripple.guard.armed" {
		t.Errorf("expected name 'ripple.guard.armed', got %q", GuardArmed.Name())
	}
}

func TestGuardDisarmed(t *testing.T) {
	if GuardDisarmed.Name() != "ripple.guard.disarmed" {
		t.Errorf("expected name 'ripple.guard.disarmed', got %q", GuardDisarmed.Name())
	}
}

func TestNavigationAllowed(t *testing.T) {
	if NavigationAllowed.Name() != "ripple.guard.navigation.allowed" {
		t.Errorf("expected name 'ripple.guard.navigation.allowed', got %q", NavigationAllowed.Name())
	}
}

func TestNavigationBlocked(t *testing.T) {
	if NavigationBlocked.Name() != "ripple.guard.navigation.blocked" {
		t.Errorf("expected name 'ripple.guard.navigation.blocked', got %q", NavigationBlocked.Name())
	}
}
