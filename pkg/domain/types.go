package domain

import "time"

type StoryGenre string

const (
	GenreDrama          StoryGenre = "drama"
	GenreComedy         StoryGenre = "comedy"
	GenreAdventure      StoryGenre = "adventure"
	GenreScienceFiction StoryGenre = "science_fiction"
	GenreRomance        StoryGenre = "romance"
	GenreThriller       StoryGenre = "thriller"
	GenreMystery        StoryGenre = "mystery"
	GenreFantasy        StoryGenre = "fantasy"
	GenreHorror         StoryGenre = "horror"
	GenreHistorical     StoryGenre = "historical"
)

// KnownGenre reports whether g is one of the fixed genre literals.
func KnownGenre(g StoryGenre) bool {
	switch g {
	case GenreDrama, GenreComedy, GenreAdventure, GenreScienceFiction,
		GenreRomance, GenreThriller, GenreMystery, GenreFantasy,
		GenreHorror, GenreHistorical:
		return true
	}
	return false
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Coin         int       `json:"coin"`
	Languages    Languages `json:"languages"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Languages maps a language code to that language's saved content.
// A missing code is equivalent to an empty bucket.
type Languages map[string]LanguageBucket

// Bucket returns the bucket for code, or an empty one when absent.
func (l Languages) Bucket(code string) LanguageBucket {
	if l == nil {
		return LanguageBucket{}
	}
	return l[code]
}

type LanguageBucket struct {
	Stories []Story     `json:"stories"`
	Words   []SavedWord `json:"words"`
}

// Thumbnail describes the generated cover art of a story.
type Thumbnail struct {
	BackgroundColor string `json:"backgroundColor"`
	SVGIndex        int    `json:"svgIndex"`
}

type Story struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Content       string     `json:"content"`
	Language      string     `json:"language"`
	Level         string     `json:"level,omitempty"`
	Minutes       *int       `json:"minutes,omitempty"`
	Words         *int       `json:"words,omitempty"`
	Genre         StoryGenre `json:"genre,omitempty"`
	Thumbnail     *Thumbnail `json:"thumbnail,omitempty"`
	Description   string     `json:"description,omitempty"`
	CoverImageURI string     `json:"coverImageUri,omitempty"`
}

// StorySummary is a Story without its text, used for list views.
type StorySummary struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Language      string     `json:"language"`
	Level         string     `json:"level,omitempty"`
	Minutes       *int       `json:"minutes,omitempty"`
	Words         *int       `json:"words,omitempty"`
	Genre         StoryGenre `json:"genre,omitempty"`
	Thumbnail     *Thumbnail `json:"thumbnail,omitempty"`
	Description   string     `json:"description,omitempty"`
	CoverImageURI string     `json:"coverImageUri,omitempty"`
}

// Summary strips the content field from a story.
func (s Story) Summary() StorySummary {
	return StorySummary{
		ID:            s.ID,
		Title:         s.Title,
		Language:      s.Language,
		Level:         s.Level,
		Minutes:       s.Minutes,
		Words:         s.Words,
		Genre:         s.Genre,
		Thumbnail:     s.Thumbnail,
		Description:   s.Description,
		CoverImageURI: s.CoverImageURI,
	}
}

type SavedWord struct {
	ID      string `json:"id"`
	Word    string `json:"word"`
	Meaning string `json:"meaning"`
}
