// Command inspect prints the content of a chat database without
// starting the server.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"pairchat/domain/chat"
	"pairchat/repositories"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

func main() {
	dbPath := flag.String("db", "./data/badger", "Path to badger DB")
	what := flag.String("what", "users", "users, messages or conversation")
	limit := flag.Int("limit", 50, "Number of recent messages to show")
	userA := flag.String("a", "", "First participant of the conversation")
	userB := flag.String("b", "", "Second participant of the conversation")
	flag.Parse()

	if err := run(*dbPath, *what, *limit, *userA, *userB); err != nil {
		color.Error.Println(err)
		os.Exit(1)
	}
}

func run(dbPath, what string, limit int, userA, userB string) error {
	db, err := badger.Open(badger.DefaultOptions(dbPath).
		WithReadOnly(true).
		WithLoggingLevel(badger.ERROR))
	if err != nil {
		return fmt.Errorf("error while opening Badger: %w", err)
	}
	defer db.Close()

	log := logs.GetLoggerFromLevel(slog.LevelError)
	users := repositories.NewUserRepository(db, log)
	messages := repositories.NewMessageRepository(db, log)

	switch what {
	case "users":
		identities, err := users.List()
		if err != nil {
			return err
		}
		color.Cyan.Printf("%d user(s)\n", len(identities))
		printUsers(identities)
	case "messages":
		recent, err := messages.RecentGlobal(limit)
		if err != nil {
			return err
		}
		color.Cyan.Printf("%d most recent message(s)\n", len(recent))
		printMessages(recent)
	case "conversation":
		if userA == "" || userB == "" {
			return fmt.Errorf("conversation needs -a and -b")
		}
		conversation, err := messages.Between(userA, userB)
		if err != nil {
			return err
		}
		color.Cyan.Printf("%d message(s) between %s and %s\n", len(conversation), userA, userB)
		printMessages(conversation)
	default:
		return fmt.Errorf("unknown -what %q", what)
	}
	return nil
}

func newTable(header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

func printUsers(identities []chat.Identity) {
	table := newTable("Name", "Status", "Handle", "Last seen", "Created")
	for _, identity := range identities {
		status := color.Gray.Sprint("offline")
		if identity.Online {
			status = color.Green.Sprint("online")
		}
		table.Append([]string{
			identity.Name,
			status,
			shortHandle(identity.Handle),
			formatTime(identity.LastSeen),
			formatTime(identity.CreatedAt),
		})
	}
	table.Render()
}

func printMessages(messages []chat.Message) {
	table := newTable("At", "Kind", "From", "To", "Content")
	for _, m := range messages {
		table.Append([]string{
			formatTime(m.CreatedAt),
			string(m.Kind),
			m.Sender,
			m.Recipient,
			m.Content,
		})
	}
	table.Render()
}

// shortHandle keeps the first 8 characters for readability.
func shortHandle(handle chat.Handle) string {
	h := string(handle)
	if len(h) > 8 {
		return h[:8]
	}
	return h
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
