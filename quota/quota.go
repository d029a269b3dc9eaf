// Package quota tracks per-identity daily message counts against fixed
// limits. Anonymous identities are counted in an injected key-value store;
// registered identities are counted on their profile row, read fresh on every
// check.
//
// There is no atomicity between CanSend and a later RecordSend: two sends in
// flight at once can each pass the check and push an identity one past its
// limit. That race is inherited from the reference behavior and accepted.
package quota

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrQuotaExceeded signals that the identity has no messages left today.
var ErrQuotaExceeded = errors.New("daily message limit reached")

// AnonymousKey is the storage key shared by all anonymous senders of one
// store instance.
const AnonymousKey = "anon"

const dateLayout = "2006-01-02"

// Identity is either anonymous (empty UserID) or a registered user.
type Identity struct {
	UserID string
}

// Anonymous returns the anonymous identity.
func Anonymous() Identity {
	return Identity{}
}

// Registered returns the identity of a signed-in user.
func Registered(userID string) Identity {
	return Identity{UserID: userID}
}

// IsRegistered reports whether the identity belongs to a signed-in user.
func (i Identity) IsRegistered() bool {
	return i.UserID != ""
}

// Key returns the storage key for the identity.
func (i Identity) Key() string {
	if i.UserID == "" {
		return AnonymousKey
	}
	return i.UserID
}

// Record is the persisted counter value: messages sent on a given day. A
// record whose date is not today counts as zero.
type Record struct {
	Count int    `json:"count"`
	Date  string `json:"date"` // YYYY-MM-DD
}

// Store is the key-value capability quota records are persisted through.
// Values are opaque serialized text.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// ProfileSource reads and updates the server-side usage counters of
// registered users.
type ProfileSource interface {
	GetUsage(ctx context.Context, userID string) (limit, count int, lastSentDate string, err error)
	UpdateUsage(ctx context.Context, userID string, count int, date string) error
}

// Tracker answers quota questions for both identity classes.
type Tracker struct {
	store           Store
	profiles        ProfileSource
	anonLimit       int
	registeredLimit int
	now             func() time.Time
}

// NewTracker constructs a Tracker. now may be nil for wall-clock time.
func NewTracker(store Store, profiles ProfileSource, anonLimit, registeredLimit int) *Tracker {
	return &Tracker{
		store:           store,
		profiles:        profiles,
		anonLimit:       anonLimit,
		registeredLimit: registeredLimit,
		now:             time.Now,
	}
}

// WithClock overrides the tracker's clock.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

func (t *Tracker) today() string {
	return t.now().UTC().Format(dateLayout)
}

// CanSend reports whether the identity may send another message today.
func (t *Tracker) CanSend(ctx context.Context, id Identity) (bool, error) {
	limit, count, err := t.usage(ctx, id)
	if err != nil {
		return false, err
	}
	return count < limit, nil
}

// Remaining returns how many messages the identity has left today, never
// negative.
func (t *Tracker) Remaining(ctx context.Context, id Identity) (int, error) {
	limit, count, err := t.usage(ctx, id)
	if err != nil {
		return 0, err
	}
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// RecordSend increments today's counter for the identity. Call it only after
// a message round-trip completed successfully.
func (t *Tracker) RecordSend(ctx context.Context, id Identity) error {
	today := t.today()

	if id.IsRegistered() {
		_, count, lastSent, err := t.profiles.GetUsage(ctx, id.UserID)
		if err != nil {
			return err
		}
		if lastSent != today {
			count = 0
		}
		return t.profiles.UpdateUsage(ctx, id.UserID, count+1, today)
	}

	rec := t.loadRecord(ctx, id.Key())
	if rec.Date != today {
		rec = Record{Date: today}
	}
	rec.Count++
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return t.store.Set(ctx, id.Key(), string(payload))
}

func (t *Tracker) usage(ctx context.Context, id Identity) (limit, count int, err error) {
	today := t.today()

	if id.IsRegistered() {
		profileLimit, profileCount, lastSent, err := t.profiles.GetUsage(ctx, id.UserID)
		if err != nil {
			return 0, 0, err
		}
		limit = t.registeredLimit
		if profileLimit > 0 {
			limit = profileLimit
		}
		if lastSent != today {
			profileCount = 0
		}
		return limit, profileCount, nil
	}

	rec := t.loadRecord(ctx, id.Key())
	if rec.Date != today {
		rec.Count = 0
	}
	return t.anonLimit, rec.Count, nil
}

// loadRecord reads and decodes a stored record, falling back to a zero record
// on any read or decode problem. Quota tracking degrades open rather than
// blocking sends on a corrupt counter.
func (t *Tracker) loadRecord(ctx context.Context, key string) Record {
	value, ok, err := t.store.Get(ctx, key)
	if err != nil || !ok {
		return Record{Date: t.today()}
	}
	var rec Record
	if err := json.Unmarshal([]byte(value), &rec); err != nil {
		return Record{Date: t.today()}
	}
	return rec
}
