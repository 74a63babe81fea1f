package screens

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind identifies a screen variant.
type Kind int

const (
	KindUnknown Kind = iota
	KindIntro
	KindLoading
	KindMainMenu
	KindMatchResult
	KindRace
	KindRaceResult
	KindSelectCharacter
)

var kindNames = [...]string{
	KindUnknown:         "unknown",
	KindIntro:           "intro",
	KindLoading:         "loading",
	KindMainMenu:        "main_menu",
	KindMatchResult:     "match_result",
	KindRace:            "race",
	KindRaceResult:      "race_result",
	KindSelectCharacter: "select_character",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// EventType is the routing tag sent with emitted screens.
func (k Kind) EventType() string {
	return k.String() + "_screen"
}

// Screen is one classified frame. The set of variants is closed.
type Screen interface {
	Kind() Kind
	screen()
}

// Intro is a course title card.
type Intro struct {
	Course string `json:"course_name"`
}

// Loading, MainMenu, SelectCharacter and Unknown carry no payload.
type (
	Loading         struct{}
	MainMenu        struct{}
	SelectCharacter struct{}
	Unknown         struct{}
)

// Race is an in-progress split-screen race.
type Race struct {
	Players  []Player
	Starting bool
}

// RaceResult is the per-race scoreboard.
type RaceResult struct {
	Players []RaceResultPlayer
}

// MatchResult is the end-of-cup standings.
type MatchResult struct {
	Players []MatchResultPlayer
	Speed   *int
}

// Status is a racer's progress.
type Status int

const (
	Racing Status = iota
	Finished
)

func (s Status) String() string {
	if s == Finished {
		return "finish"
	}
	return "racing"
}

// Player is one occupied seat on the race screen.
type Player struct {
	Index    int
	Position *int
	Status   Status
	Item     *Item
}

// RaceResultPlayer is a seat's row on the race scoreboard.
type RaceResultPlayer struct {
	Index    int
	Position int
	Points   int
}

// MatchResultPlayer is a seat's row in the final standings.
type MatchResultPlayer struct {
	Index    int
	Position int
	Score    *int
}

func (Intro) Kind() Kind           { return KindIntro }
func (Loading) Kind() Kind         { return KindLoading }
func (MainMenu) Kind() Kind        { return KindMainMenu }
func (SelectCharacter) Kind() Kind { return KindSelectCharacter }
func (Unknown) Kind() Kind         { return KindUnknown }
func (Race) Kind() Kind            { return KindRace }
func (RaceResult) Kind() Kind      { return KindRaceResult }
func (MatchResult) Kind() Kind     { return KindMatchResult }

func (Intro) screen()           {}
func (Loading) screen()         {}
func (MainMenu) screen()        {}
func (SelectCharacter) screen() {}
func (Unknown) screen()         {}
func (Race) screen()            {}
func (RaceResult) screen()      {}
func (MatchResult) screen()     {}

// EventType returns the routing tag for s.
func EventType(s Screen) string {
	return s.Kind().EventType()
}

// Marshal encodes the payload of s as sent to the ingestion endpoint.
func Marshal(s Screen) (json.RawMessage, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", s.Kind(), err)
	}
	return b, nil
}

var seatNames = [SeatCount]string{"player_one", "player_two", "player_three", "player_four"}

// SeatName returns the payload key for a seat index.
func SeatName(index int) (string, error) {
	if index < 0 || index >= SeatCount {
		return "", fmt.Errorf("seat %d out of range: only %d seats supported", index, SeatCount)
	}
	return seatNames[index], nil
}

var null = []byte("null")

func (Loading) MarshalJSON() ([]byte, error)         { return null, nil }
func (MainMenu) MarshalJSON() ([]byte, error)        { return null, nil }
func (SelectCharacter) MarshalJSON() ([]byte, error) { return null, nil }
func (Unknown) MarshalJSON() ([]byte, error)         { return null, nil }

type racePlayerJSON struct {
	Position *int   `json:"position,omitempty"`
	Item     *Item  `json:"item,omitempty"`
	Status   string `json:"status,omitempty"`
}

// MarshalJSON encodes players keyed by seat. Starting is not part of the payload.
func (r Race) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range r.Players {
		v := racePlayerJSON{Position: p.Position, Item: p.Item}
		if p.Status == Finished {
			v.Status = p.Status.String()
		}
		if err := writeSeat(&buf, i, p.Index, v); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type raceResultPlayerJSON struct {
	Position int `json:"position"`
	Points   int `json:"points"`
}

func (r RaceResult) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range r.Players {
		if err := writeSeat(&buf, i, p.Index, raceResultPlayerJSON{Position: p.Position, Points: p.Points}); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type matchResultPlayerJSON struct {
	Position int  `json:"position"`
	Score    *int `json:"score,omitempty"`
}

// MarshalJSON flattens the seat map next to the speed class.
func (m MatchResult) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range m.Players {
		if err := writeSeat(&buf, i, p.Index, matchResultPlayerJSON{Position: p.Position, Score: p.Score}); err != nil {
			return nil, err
		}
	}
	if len(m.Players) > 0 {
		buf.WriteByte(',')
	}
	buf.WriteString(`"speed":`)
	speed, err := json.Marshal(m.Speed)
	if err != nil {
		return nil, err
	}
	buf.Write(speed)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeSeat(buf *bytes.Buffer, n, index int, v any) error {
	name, err := SeatName(index)
	if err != nil {
		return err
	}
	if n > 0 {
		buf.WriteByte(',')
	}
	key, _ := json.Marshal(name)
	buf.Write(key)
	buf.WriteByte(':')
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}
