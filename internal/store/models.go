package store

import "time"

// Winner of a closed debate
type Winner string

const (
	WinnerNone     Winner = ""
	WinnerAuthor   Winner = "author"
	WinnerRebuttal Winner = "rebuttal"
	WinnerDraw     Winner = "draw"
)

// Category of a debate
type Category string

const (
	CategoryGame    Category = "game"
	CategorySociety Category = "society"
	CategoryRomance Category = "romance"
	CategorySports  Category = "sports"
	CategoryOther   Category = "other"
)

// Categories lists every accepted category
var Categories = []Category{CategoryGame, CategorySociety, CategoryRomance, CategorySports, CategoryOther}

// Anonymous is the author recorded when none is given
const Anonymous = "anonymous"

type Debate struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Author   string   `json:"author"`
	Category Category `json:"category"`

	RebuttalTitle   string     `json:"rebuttal_title,omitempty"`
	RebuttalContent string     `json:"rebuttal_content,omitempty"`
	RebuttalAuthor  string     `json:"rebuttal_author,omitempty"`
	RebuttalAt      *time.Time `json:"rebuttal_at,omitempty"`

	AuthorVotes   int      `json:"author_votes"`
	RebuttalVotes int      `json:"rebuttal_votes"`
	Voters        []string `json:"voters"`
	Winner        Winner   `json:"winner,omitempty"`

	IsClosed bool       `json:"is_closed"`
	ClosedAt *time.Time `json:"closed_at,omitempty"`

	Likes    int `json:"likes"`
	Dislikes int `json:"dislikes"`

	CreatedAt time.Time `json:"created_at"`
}

// HasRebuttal reports whether the debate has been contested
func (d *Debate) HasRebuttal() bool {
	return d.RebuttalTitle != ""
}

// HasVoter reports whether voter already voted on the debate
func (d *Debate) HasVoter(voter string) bool {
	for _, v := range d.Voters {
		if v == voter {
			return true
		}
	}
	return false
}

type Comment struct {
	ID        string     `json:"id"`
	DebateID  string     `json:"debate_id"`
	ParentID  string     `json:"parent_id,omitempty"`
	Author    string     `json:"author"`
	Text      string     `json:"text"`
	IPAddress string     `json:"-"`
	CreatedAt time.Time  `json:"created_at"`
	Replies   []*Comment `json:"replies,omitempty"`
}
