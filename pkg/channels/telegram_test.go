package channels

import (
	"context"
	"strings"
	"testing"

	"github.com/mymmrac/telego"
	"github.com/rs/zerolog"

	"github.com/krzyywyy/discord-telegram-bridge/pkg/bridge"
	"github.com/krzyywyy/discord-telegram-bridge/pkg/bus"
)

func telegramMessage(text string) *telego.Message {
	return &telego.Message{
		MessageID: 9,
		Text:      text,
		Chat:      telego.Chat{ID: -100123, Title: "My Group", Type: telego.ChatTypeSupergroup},
		From:      &telego.User{ID: 777, FirstName: "Bob", LastName: "Jones", Username: "bobj"},
	}
}

func TestFormatTelegramMessage_Text(t *testing.T) {
	got := FormatTelegramMessage(telegramMessage("hi there"))
	want := "[Telegram My Group] Bob Jones (@bobj):\nhi there"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatTelegramMessage_CaptionFallback(t *testing.T) {
	m := telegramMessage("")
	m.Caption = "the caption"
	m.Photo = []telego.PhotoSize{{FileID: "f1"}}
	got := FormatTelegramMessage(m)
	if !strings.HasSuffix(got, "\nthe caption") {
		t.Errorf("got %q, want caption as body", got)
	}
}

func TestFormatTelegramMessage_MediaKindPlaceholder(t *testing.T) {
	cases := []struct {
		name string
		mod  func(*telego.Message)
		want string
	}{
		{"photo", func(m *telego.Message) { m.Photo = []telego.PhotoSize{{FileID: "f"}} }, "[photo]"},
		{"document", func(m *telego.Message) { m.Document = &telego.Document{FileID: "f"} }, "[document]"},
		{"sticker", func(m *telego.Message) { m.Sticker = &telego.Sticker{FileID: "f"} }, "[sticker]"},
		{"voice", func(m *telego.Message) { m.Voice = &telego.Voice{FileID: "f"} }, "[voice]"},
		{"video", func(m *telego.Message) { m.Video = &telego.Video{FileID: "f"} }, "[video]"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := telegramMessage("")
			tc.mod(m)
			got := FormatTelegramMessage(m)
			if !strings.HasSuffix(got, "\n"+tc.want) {
				t.Errorf("got %q, want body %q", got, tc.want)
			}
		})
	}
}

func TestFormatTelegramMessage_EmptyIsNotRelayable(t *testing.T) {
	if got := FormatTelegramMessage(telegramMessage("")); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestFormatTelegramMessage_ChatNameFallbacks(t *testing.T) {
	m := telegramMessage("x")
	m.Chat.Title = ""
	m.Chat.Username = "groupuser"
	if got := FormatTelegramMessage(m); !strings.HasPrefix(got, "[Telegram groupuser]") {
		t.Errorf("username fallback: got %q", got)
	}

	m.Chat.Username = ""
	if got := FormatTelegramMessage(m); !strings.HasPrefix(got, "[Telegram -100123]") {
		t.Errorf("id fallback: got %q", got)
	}
}

func TestTelegramDisplayName(t *testing.T) {
	if got := telegramDisplayName(nil); got != "Unknown" {
		t.Errorf("nil user: got %q", got)
	}

	u := &telego.User{ID: 777, FirstName: "Bob"}
	if got := telegramDisplayName(u); got != "Bob" {
		t.Errorf("no username: got %q", got)
	}

	u.Username = "bobj"
	if got := telegramDisplayName(u); got != "Bob (@bobj)" {
		t.Errorf("with username: got %q", got)
	}

	// Username equal to the display name is not repeated parenthetically.
	u.FirstName = ""
	if got := telegramDisplayName(u); got != "bobj" {
		t.Errorf("username-only: got %q", got)
	}

	u.Username = ""
	if got := telegramDisplayName(u); got != "777" {
		t.Errorf("id fallback: got %q", got)
	}
}

func TestTelegramStopCancelsPolling(t *testing.T) {
	tc := &TelegramChannel{
		BaseChannel: NewBaseChannel(bus.PlatformTelegram, TelegramMessageLimit, nil, nil, zerolog.Nop()),
	}
	cancelled := false
	tc.cancel = func() { cancelled = true }
	tc.SetRunning(true)

	if err := tc.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !cancelled {
		t.Error("polling context was not cancelled")
	}
	if tc.IsRunning() {
		t.Error("channel still reports running")
	}
}

func TestFormatBridgeList(t *testing.T) {
	if got := FormatBridgeList(nil); got != "No bridges configured." {
		t.Errorf("empty: got %q", got)
	}

	got := FormatBridgeList(map[string]bridge.Membership{
		"beta":  {DiscordChannels: []int64{1}},
		"alpha": {DiscordChannels: []int64{1, 2}, TelegramChats: []int64{100}},
	})
	want := "- alpha: dc=2, tg=1\n- beta: dc=1, tg=0"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
