package bot

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/m3rciful/unilinkup/core/telegram/format"
	"github.com/m3rciful/unilinkup/internal/meetup"
	"github.com/m3rciful/unilinkup/internal/notify"
	"github.com/m3rciful/unilinkup/internal/store"
)

const (
	msgWelcomeBody = "I'm your friendly campus meetup organizer! 🤖✨\n\n" +
		"*What I can help you with:*\n" +
		"🍽️ /lunch - Grab lunch with friends\n" +
		"📚 /study - Organize study sessions\n" +
		"📋 /recent - Check recent invitations\n" +
		"🆘 /help - Get help anytime\n\n" +
		"Ready to connect with your friends? Let's go! 🚀"

	msgHelp = "🆘 *UniLinkUp Help*\n\n" +
		"*Available Commands:*\n" +
		"🍽️ /lunch - Organize a lunch meetup\n" +
		"📚 /study - Plan a study session\n" +
		"📋 /recent - View recent invitations\n" +
		"🙋 /mine - View invitations you sent\n" +
		"❌ /cancel - Cancel the meetup in progress\n" +
		"🆘 /help - Show this help message\n\n" +
		"*How it works:*\n" +
		"1. Choose a command to start organizing\n" +
		"2. Select a location from the options\n" +
		"3. Optionally set a time (or /skip for flexible timing)\n" +
		"4. Select friends to invite\n" +
		"5. Confirm and send invitations!\n\n" +
		"Need more help? Just start a new command and follow the prompts! 😊"

	msgLunchPrompt = "🍽️ Awesome! Time for some good food and great company! 🍕\nWhere would you like to meet up?"
	msgStudyPrompt = "📚 Perfect! Let's get those study vibes going! 📖✨\nWhere should we hit the books together?"

	msgTimePrompt = "⏰ When would you like to meet?\n\n" +
		"You can specify a time (e.g. \"2:30 PM\", \"in 30 minutes\") or press /skip to leave it flexible."

	msgFriendsPrompt = "👥 Time to gather the squad! 🎉\nWho would you like to invite? Tap to select your friends:"

	msgNoRecentPings = "📭 No recent invitations yet! 🤔\nTime to be the social butterfly! Use /lunch or /study to get started! 🦋✨"
	msgNoOwnPings    = "📭 You haven't sent any invitations yet. Use /lunch or /study to start one!"

	msgCancelled     = "❌ Meetup organization cancelled. Use /lunch or /study to start again!"
	msgNothingCancel = "🤷 There is no meetup in progress. Use /lunch or /study to start one!"
	msgTimeout       = "⏱️ Session timed out. Please start over with a new command."

	msgInvalidTime     = "⚠️ Invalid time format. Please try again or use /skip."
	msgTimeTooLong     = "⚠️ That time is too long. Keep it short, or use /skip."
	msgInputTooLong    = "⚠️ That message is too long. Please keep it short."
	msgNoFriends       = "⚠️ Please select at least one friend to invite."
	msgStaleButton     = "⚠️ This button is no longer active."
	msgUseButtons      = "👆 Please use the buttons above to continue, or /cancel to stop."
	msgStartOver       = "😅 Oops! Something went wrong. Please start over with /lunch or /study."
	msgExpiredButton   = "⌛ This button has expired. Start over with /lunch or /study."
	msgUnknownText     = "🤔 I didn't understand that. Use /help to see what I can do."
	msgUnknownDocument = "📎 I can't process files. Use /help to see what I can do."
	msgAdminOnly       = "⛔ This command is for admins only."
	msgSnapshotOff     = "💾 Snapshots are not configured."
	msgSnapshotFailed  = "💾 Snapshot failed. Details are in the logs."

	flexibleTime = "Flexible time"

	// previewLimit is how many invitations the send confirmation shows in full.
	previewLimit = 3
	// friendsColumnWidth truncates the friend list in history entries.
	friendsColumnWidth = 30
)

func md(s string) string { return format.EscapeMD(s) }

// typeTitle builds its own Caser: a Caser keeps per-call state and cannot be
// shared across handler goroutines.
func typeTitle(t meetup.Type) string {
	return cases.Title(language.English).String(string(t))
}

func typeEmoji(t meetup.Type) string {
	if t == meetup.TypeLunch {
		return "🍽️"
	}
	return "📚"
}

func timeText(t string) string {
	if strings.TrimSpace(t) == "" {
		return flexibleTime
	}
	return t
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

// WelcomeMessage greets the user, by name when one is known.
func WelcomeMessage(name string) string {
	if name == "" {
		return "🎓 Welcome to UniLinkUp!\n\n" + msgWelcomeBody
	}
	return fmt.Sprintf("🎓 Welcome to UniLinkUp, %s!\n\n%s", md(name), msgWelcomeBody)
}

// StartPrompt asks for a location for a new meetup of type t.
func StartPrompt(t meetup.Type) string {
	if t == meetup.TypeLunch {
		return msgLunchPrompt
	}
	return msgStudyPrompt
}

// LocationChosenMessage confirms the location and asks for a time.
func LocationChosenMessage(location string) string {
	return fmt.Sprintf("📍 Great choice! You selected: *%s*\n\n%s", md(location), msgTimePrompt)
}

// TimeChosenMessage confirms the time and asks for friends.
func TimeChosenMessage(t string) string {
	return fmt.Sprintf("⏰ Time set: *%s*\n\n%s", md(timeText(t)), msgFriendsPrompt)
}

// FriendsMessage renders the friend picker header for the current selection.
func FriendsMessage(selected []string) string {
	if len(selected) == 0 {
		return msgFriendsPrompt
	}
	return fmt.Sprintf("%s\n\n📊 Currently selected: %s\n👥 %s",
		msgFriendsPrompt, plural(len(selected), "friend"), md(strings.Join(selected, ", ")))
}

// ConfirmMessage summarizes the draft before sending.
func ConfirmMessage(s meetup.Session) string {
	location := s.Location
	if location == "" {
		location = "Not specified"
	}
	return fmt.Sprintf("✅ Perfect! Here's your %s meetup summary:\n\n📍 Location: %s\n⏰ Time: %s\n👥 Friends: %s\n\nReady to send invitations?",
		strings.ToLower(typeTitle(s.Type)), md(location), md(timeText(s.TimeValue())), md(strings.Join(s.SelectedFriends, ", ")))
}

// InvitationMessage renders the notice addressed to one invited friend.
func InvitationMessage(inv notify.Invitation) string {
	others := "No other friends"
	if len(inv.Others) > 0 {
		others = strings.Join(inv.Others, ", ")
	}
	return fmt.Sprintf("🔔 New %s invitation from %s!\n\n📍 %s\n⏰ %s\n👥 Also invited: %s\n\nHope to see you there! 😊",
		string(inv.Type), md(inv.Organizer), md(inv.Location), md(timeText(inv.Time)), md(others))
}

// SentMessage confirms a sent ping and previews the first invitations.
func SentMessage(invs []notify.Invitation) string {
	var b strings.Builder
	if len(invs) == 1 {
		b.WriteString("🎉 Invitation sent successfully! Your friend has been notified.")
	} else {
		fmt.Fprintf(&b, "🎉 Invitations sent successfully! Your %d friends have been notified.", len(invs))
	}
	if len(invs) == 0 {
		return b.String()
	}
	b.WriteString("\n\n🔔 *Notifications sent:*")
	for i, inv := range invs {
		if i == previewLimit {
			fmt.Fprintf(&b, "\n\n... and %d more", len(invs)-previewLimit)
			break
		}
		fmt.Fprintf(&b, "\n\n📨 *To %s:*\n%s", md(inv.Recipient), InvitationMessage(inv))
	}
	return b.String()
}

// PingLine renders one history entry.
func PingLine(p meetup.Ping) string {
	friends := strings.Join(p.InvitedFriends, ", ")
	if utf8.RuneCountInString(friends) > friendsColumnWidth {
		friends = string([]rune(friends)[:friendsColumnWidth-3]) + "..."
	}
	return fmt.Sprintf("%s %s - %s\n⏰ %s | 👥 %s\n📅 %s by %s",
		typeEmoji(p.Type), typeTitle(p.Type), md(p.Location),
		md(timeText(p.Time)), md(friends),
		p.CreatedAt.Format("01/02 15:04"), md(p.OrganizerName))
}

// PingListMessage renders a numbered history list under header.
func PingListMessage(header string, pings []meetup.Ping, empty string) string {
	if len(pings) == 0 {
		return empty
	}
	parts := make([]string, 0, len(pings)+1)
	parts = append(parts, header)
	for i, p := range pings {
		parts = append(parts, fmt.Sprintf("%d. %s", i+1, PingLine(p)))
	}
	return strings.Join(parts, "\n\n")
}

// StatsMessage renders the admin statistics view.
func StatsMessage(sum meetup.Summary, st store.Stats, errs ErrorStats) string {
	var b strings.Builder
	b.WriteString("📊 *UniLinkUp Stats*\n\n")
	fmt.Fprintf(&b, "📨 Total pings: %d\n", sum.Total)
	fmt.Fprintf(&b, "🍽️ Lunch: %d | 📚 Study: %d\n", sum.Lunch, sum.Study)
	fmt.Fprintf(&b, "👤 Unique organizers: %d\n", sum.UniqueOrganizers)
	fmt.Fprintf(&b, "📍 Unique locations: %d\n", sum.UniqueLocations)
	if sum.PopularLocation != "" {
		fmt.Fprintf(&b, "🔥 Most popular: %s (%d)\n", md(sum.PopularLocation), sum.PopularCount)
	}
	fmt.Fprintf(&b, "\n🧠 Active sessions: %d\n", st.Sessions)
	fmt.Fprintf(&b, "🗂 History: %d/%d\n", st.Pings, st.MaxPingHistory)
	fmt.Fprintf(&b, "⚠️ Errors: %d", errs.Total)
	if len(errs.ByKind) > 0 {
		kinds := make([]string, 0, len(errs.ByKind))
		for k := range errs.ByKind {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		for i, k := range kinds {
			kinds[i] = fmt.Sprintf("%s: %d", md(k), errs.ByKind[k])
		}
		fmt.Fprintf(&b, " (%s)", strings.Join(kinds, ", "))
	}
	return b.String()
}

// SnapshotMessage reports a successful manual snapshot.
func SnapshotMessage(res store.SaveResult, backup string) string {
	msg := fmt.Sprintf("💾 Snapshot saved: %s, %s (%d bytes).",
		plural(res.Sessions, "session"), plural(res.Pings, "ping"), res.Bytes)
	if backup != "" {
		msg += "\nPrevious file kept as backup."
	}
	return msg
}
