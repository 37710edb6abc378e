package conversation

import (
	"testing"
	"time"

	"campuschat/models"
)

const currentUser = "me"

var other = models.UserRef{ID: "other", Name: "Robin"}

// at builds a millisecond timestamp for a UTC wall-clock time.
func at(t *testing.T, value string) int64 {
	t.Helper()

	parsed, err := time.ParseInLocation("2006-01-02 15:04:05", value, time.UTC)
	if err != nil {
		t.Fatalf("parse time %q: %v", value, err)
	}
	return parsed.UnixMilli()
}

func messageAt(t *testing.T, sender models.UserRef, value, text string) models.Message {
	t.Helper()

	return models.Message{
		ID:           text,
		Sender:       sender,
		Text:         text,
		TimestampUTC: at(t, value),
		Status:       models.MessageStatusSent,
		Kind:         models.MessageKindText,
	}
}

func messageItems(items []DisplayItem) []DisplayItem {
	out := make([]DisplayItem, 0, len(items))
	for _, item := range items {
		if item.Kind == ItemMessage {
			out = append(out, item)
		}
	}
	return out
}

func separatorCount(items []DisplayItem) int {
	count := 0
	for _, item := range items {
		if item.Kind == ItemDateSeparator {
			count++
		}
	}
	return count
}

func TestRenderInsertsOneSeparatorPerCalendarDay(t *testing.T) {
	messages := []models.Message{
		messageAt(t, other, "2026-03-01 09:00:00", "m1"),
		messageAt(t, other, "2026-03-01 18:30:00", "m2"),
		messageAt(t, other, "2026-03-02 00:00:01", "m3"),
		messageAt(t, other, "2026-03-02 12:00:00", "m4"),
		messageAt(t, other, "2026-03-05 08:00:00", "m5"),
	}

	items := RenderIn(messages, currentUser, time.UTC)
	if got := separatorCount(items); got != 3 {
		t.Fatalf("expected 3 date separators for 3 distinct days, got %d", got)
	}

	// Each separator must sit immediately before the first message of its day.
	if items[0].Kind != ItemDateSeparator || items[1].Message.ID != "m1" {
		t.Fatalf("expected day separator before m1")
	}
	if items[3].Kind != ItemDateSeparator || items[4].Message.ID != "m3" {
		t.Fatalf("expected day separator before m3, got %+v", items[3])
	}
	if items[6].Kind != ItemDateSeparator || items[7].Message.ID != "m5" {
		t.Fatalf("expected day separator before m5, got %+v", items[6])
	}
}

func TestAvatarGroupingSixtySecondWindow(t *testing.T) {
	messages := []models.Message{
		messageAt(t, other, "2026-03-01 10:00:00", "m1"),
		messageAt(t, other, "2026-03-01 10:00:30", "m2"),
		messageAt(t, other, "2026-03-01 10:02:00", "m3"),
	}

	rendered := messageItems(RenderIn(messages, currentUser, time.UTC))
	if len(rendered) != 3 {
		t.Fatalf("expected 3 message items, got %d", len(rendered))
	}

	// m1's successor is 30s later: grouped, no avatar.
	// m2's successor is 90s later: run breaks, avatar shown.
	// m3 has no successor: avatar shown.
	want := []bool{false, true, true}
	for i, item := range rendered {
		if item.ShowAvatar != want[i] {
			t.Errorf("message %d: expected ShowAvatar=%v, got %v", i, want[i], item.ShowAvatar)
		}
	}
}

func TestAvatarExactlySixtySecondsBreaksRun(t *testing.T) {
	messages := []models.Message{
		messageAt(t, other, "2026-03-01 10:00:00", "m1"),
		messageAt(t, other, "2026-03-01 10:01:00", "m2"),
	}

	rendered := messageItems(RenderIn(messages, currentUser, time.UTC))
	if !rendered[0].ShowAvatar {
		t.Fatalf("expected avatar at exactly 60s gap (strict <60s grouping)")
	}
}

func TestAvatarNeverShownForOwnMessages(t *testing.T) {
	me := models.UserRef{ID: currentUser}
	messages := []models.Message{
		messageAt(t, me, "2026-03-01 10:00:00", "m1"),
		messageAt(t, me, "2026-03-01 10:05:00", "m2"),
	}

	for i, item := range messageItems(RenderIn(messages, currentUser, time.UTC)) {
		if item.ShowAvatar {
			t.Errorf("message %d: own messages must not show an avatar", i)
		}
		if !item.IsOwn {
			t.Errorf("message %d: expected IsOwn", i)
		}
	}
}

func TestStatusMarksOnlyForOwnMessages(t *testing.T) {
	me := models.UserRef{ID: currentUser}
	tests := []struct {
		sender models.UserRef
		status string
		want   string
	}{
		{me, models.MessageStatusSent, MarkSent},
		{me, models.MessageStatusDelivered, MarkDelivered},
		{me, models.MessageStatusSeen, MarkSeen},
		{me, "", ""},
		{me, "queued", ""},
		{other, models.MessageStatusSeen, ""},
	}

	for i, tt := range tests {
		message := messageAt(t, tt.sender, "2026-03-01 10:00:00", "m")
		message.Status = tt.status
		rendered := messageItems(RenderIn([]models.Message{message}, currentUser, time.UTC))
		if got := rendered[0].StatusMark; got != tt.want {
			t.Errorf("case %d: expected mark %q, got %q", i, tt.want, got)
		}
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	messages := []models.Message{
		messageAt(t, other, "2026-03-01 09:00:00", "m1"),
		messageAt(t, models.UserRef{ID: currentUser}, "2026-03-01 09:00:20", "m2"),
		messageAt(t, other, "2026-03-02 09:00:00", "m3"),
	}

	first := RenderIn(messages, currentUser, time.UTC)
	second := RenderIn(messages, currentUser, time.UTC)

	if len(first) != len(second) {
		t.Fatalf("expected identical output lengths, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Kind != second[i].Kind ||
			first[i].Day != second[i].Day ||
			first[i].IsOwn != second[i].IsOwn ||
			first[i].ShowAvatar != second[i].ShowAvatar ||
			first[i].StatusMark != second[i].StatusMark {
			t.Fatalf("output differs at index %d: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestRenderEmptyInput(t *testing.T) {
	if items := RenderIn(nil, currentUser, time.UTC); len(items) != 0 {
		t.Fatalf("expected no items for empty input, got %d", len(items))
	}
}
