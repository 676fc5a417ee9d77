package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/muesli/reflow/wordwrap"
)

const usage = `Type what Corvin should do, or one of:
  /describe   show the world as the game master sees it
  /status     show recent status messages
  /quit       leave the manor`

func main() {
	baseURL := flag.String("url", envOr("API_URL", "http://localhost:8080"), "API base URL")
	gameFlag := flag.String("game", "", "resume the game with this ID")
	width := flag.Int("width", 80, "wrap narration at this column")
	flag.Parse()

	c := &client{http: &http.Client{Timeout: 5 * time.Minute}, baseURL: strings.TrimRight(*baseURL, "/")}
	if !c.testConnection() {
		fmt.Fprintf(os.Stderr, "Cannot reach the API at %s\n", c.baseURL)
		os.Exit(1)
	}

	id, err := startGame(c, *gameFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("Game %s\n\n%s\n\n", id, usage)

	p := &player{client: c, game: id, width: *width}
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" {
			break
		}
		if err := p.handle(line); err != nil {
			fmt.Println(p.wrap(err.Error()))
		}
		fmt.Println()
	}
	fmt.Println("Goodbye.")
}

func startGame(c *client, raw string) (uuid.UUID, error) {
	if raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, fmt.Errorf("invalid game ID %q: %w", raw, err)
		}
		if _, err := c.getGame(id); err != nil {
			return uuid.Nil, fmt.Errorf("failed to load game: %w", err)
		}
		return id, nil
	}
	g, err := c.createGame()
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create game: %w", err)
	}
	return g.Metadata.ID, nil
}

type player struct {
	client *client
	game   uuid.UUID
	width  int
}

func (p *player) wrap(s string) string {
	return wordwrap.String(s, p.width)
}

func (p *player) handle(line string) error {
	switch line {
	case "/describe":
		text, err := p.client.describe(p.game)
		if err != nil {
			return err
		}
		fmt.Println(p.wrap(text))
		return nil
	case "/status":
		return p.printStatus(10)
	}

	code, tr, err := p.client.submitTurn(p.game, line)
	if err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.status == http.StatusConflict {
			// The turn was rolled back; the faults say why.
			return errors.New(strings.Join(append([]string{apiErr.resp.Error}, apiErr.resp.Faults...), "\n  - "))
		}
		return err
	}
	if code == http.StatusAccepted {
		return p.await(tr.RequestID)
	}
	fmt.Println(p.wrap(tr.Message))
	return nil
}

// await polls a queued turn until a new turn appears in the game or the
// status log reports a failure.
func (p *player) await(requestID string) error {
	before, err := p.client.getGame(p.game)
	if err != nil {
		return err
	}
	seen, err := p.client.status(p.game, 0)
	if err != nil {
		return err
	}
	fmt.Printf("(queued %s)\n", requestID)

	deadline := time.Now().Add(5 * time.Minute)
	for time.Now().Before(deadline) {
		time.Sleep(time.Second)

		g, err := p.client.getGame(p.game)
		if err != nil {
			return err
		}
		if len(g.Turns) > len(before.Turns) {
			fmt.Println(p.wrap(g.Turns[len(g.Turns)-1].Description))
			return nil
		}
		msgs, err := p.client.status(p.game, 0)
		if err != nil {
			return err
		}
		if fresh := msgs[min(len(seen), len(msgs)):]; hasError(fresh) {
			for _, m := range fresh {
				fmt.Println(p.wrap(fmt.Sprintf("[%s] %s", m.Level, m.Text)))
			}
			return nil
		}
	}
	return fmt.Errorf("gave up waiting for request %s", requestID)
}

func (p *player) printStatus(limit int) error {
	msgs, err := p.client.status(p.game, limit)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		fmt.Println("No status messages.")
	}
	for _, m := range msgs {
		fmt.Println(p.wrap(fmt.Sprintf("[%s] %s", m.Level, m.Text)))
	}
	return nil
}

func hasError(msgs []StatusMessage) bool {
	for _, m := range msgs {
		if m.Level == "error" {
			return true
		}
	}
	return false
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
