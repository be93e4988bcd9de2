package app

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"langstory/internal/util"
	"langstory/pkg/auth"
	"langstory/pkg/domain"
	"langstory/pkg/store"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Config holds runtime configuration for the core application.
type Config struct {
	DSN        string
	JWTSecret  string
	SessionTTL time.Duration

	// Store and Sessions override the defaults, used by tests.
	Store    store.Store
	Sessions store.SessionStore
	Revoker  store.TokenRevoker
}

// App is the core application service wiring storage, sessions, and the
// language-data logic together.
type App struct {
	store    store.Store
	sessions store.SessionStore
}

// New constructs the application with database storage and JWT sessions.
func New(cfg Config) (*App, error) {
	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DSN == "" {
			return nil, fmt.Errorf("database DSN required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}
	sessionStore := cfg.Sessions
	if sessionStore == nil {
		var err error
		sessionStore, err = store.NewJWTSessionStore(cfg.JWTSecret, cfg.SessionTTL, cfg.Revoker)
		if err != nil {
			return nil, fmt.Errorf("init jwt session store: %w", err)
		}
	}
	return &App{
		store:    dataStore,
		sessions: sessionStore,
	}, nil
}

// SignUp registers a new user and issues a session token.
func (a *App) SignUp(email, password string) (domain.User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return domain.User{}, "", ErrEmailAndPasswordRequired
	}
	if !emailPattern.MatchString(email) {
		return domain.User{}, "", ErrInvalidEmail
	}
	if err := auth.ValidatePassword(password); err != nil {
		return domain.User{}, "", &Error{Kind: KindInvalidInput, Message: err.Error()}
	}
	exists, err := a.store.HasUserEmail(email)
	if err != nil {
		return domain.User{}, "", Internal(fmt.Errorf("check email: %w", err))
	}
	if exists {
		return domain.User{}, "", ErrEmailAlreadyExists
	}
	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, "", Internal(fmt.Errorf("hash password: %w", err))
	}
	now := time.Now().UTC()
	user := domain.User{
		ID:           util.NewID(),
		Email:        email,
		PasswordHash: passwordHash,
		Coin:         0,
		Languages:    domain.Languages{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.store.SaveUser(user); err != nil {
		return domain.User{}, "", Internal(fmt.Errorf("save user: %w", err))
	}
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return domain.User{}, "", Internal(fmt.Errorf("issue token: %w", err))
	}
	return user, token, nil
}

// Login validates credentials and issues a session token.
func (a *App) Login(email, password string) (domain.User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return domain.User{}, "", ErrEmailAndPasswordRequired
	}
	user, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		return domain.User{}, "", Internal(fmt.Errorf("fetch user: %w", err))
	}
	if !ok || !auth.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, "", ErrInvalidCredentials
	}
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return domain.User{}, "", Internal(fmt.Errorf("issue token: %w", err))
	}
	return user, token, nil
}

// Logout invalidates the presented access token.
func (a *App) Logout(token string) error {
	if err := a.sessions.DeleteSession(token); err != nil {
		return Internal(fmt.Errorf("delete session: %w", err))
	}
	return nil
}

// UserFromToken resolves the bearer token to a full user record.
// Token failures are Unauthenticated; a valid token whose subject no longer
// exists is NotFound.
func (a *App) UserFromToken(token string) (domain.User, error) {
	uid, ok, err := a.sessions.GetUserIDByToken(token)
	if err != nil || !ok {
		return domain.User{}, ErrInvalidToken
	}
	user, found, err := a.store.GetUserByID(uid)
	if err != nil {
		return domain.User{}, Internal(fmt.Errorf("fetch user: %w", err))
	}
	if !found {
		return domain.User{}, ErrUserNotFound
	}
	return user, nil
}

// Profile returns the user record. The credential hash never serializes.
func (a *App) Profile(userID string) (domain.User, error) {
	user, err := a.getUser(userID)
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// Coin returns the user's coin balance.
func (a *App) Coin(userID string) (int, error) {
	user, err := a.getUser(userID)
	if err != nil {
		return 0, err
	}
	return user.Coin, nil
}

// SetCoin overwrites the user's coin balance with an absolute value.
func (a *App) SetCoin(userID string, coin int) (int, error) {
	if coin < 0 {
		return 0, ErrInvalidCoinValue
	}
	if _, err := a.getUser(userID); err != nil {
		return 0, err
	}
	if err := a.store.SaveCoin(userID, coin); err != nil {
		return 0, Internal(fmt.Errorf("save coin: %w", err))
	}
	return coin, nil
}

// StoryInput carries the fields a client may supply when saving a story.
// Language is ignored; the path parameter wins.
type StoryInput struct {
	Title         string            `json:"title"`
	Content       string            `json:"content"`
	Language      string            `json:"language"`
	Level         string            `json:"level"`
	Minutes       *int              `json:"minutes"`
	Words         *int              `json:"words"`
	Genre         domain.StoryGenre `json:"genre"`
	Thumbnail     *domain.Thumbnail `json:"thumbnail"`
	Description   string            `json:"description"`
	CoverImageURI string            `json:"coverImageUri"`
}

// WordInput carries the fields a client supplies when saving a word.
type WordInput struct {
	Word    string `json:"word"`
	Meaning string `json:"meaning"`
}

// ListStories returns the full story sequence for a language.
// A language with no bucket yields an empty list, not an error.
func (a *App) ListStories(userID, language string) ([]domain.Story, error) {
	user, err := a.getUser(userID)
	if err != nil {
		return nil, err
	}
	stories := user.Languages.Bucket(language).Stories
	if stories == nil {
		stories = []domain.Story{}
	}
	return stories, nil
}

// ListStoriesSummary returns the story sequence with content stripped.
func (a *App) ListStoriesSummary(userID, language string) ([]domain.StorySummary, error) {
	stories, err := a.ListStories(userID, language)
	if err != nil {
		return nil, err
	}
	summaries := make([]domain.StorySummary, 0, len(stories))
	for _, story := range stories {
		summaries = append(summaries, story.Summary())
	}
	return summaries, nil
}

// GetStoryContent returns one full story by id.
func (a *App) GetStoryContent(userID, language, storyID string) (domain.Story, error) {
	user, err := a.getUser(userID)
	if err != nil {
		return domain.Story{}, err
	}
	for _, story := range user.Languages.Bucket(language).Stories {
		if story.ID == storyID {
			return story, nil
		}
	}
	return domain.Story{}, ErrStoryNotFound
}

// AddStory validates input, assigns a fresh id, appends the story to the
// language bucket (creating it when absent), and persists the whole
// languages structure in one write.
func (a *App) AddStory(userID, language string, input StoryInput) (domain.Story, error) {
	if input.Title == "" || input.Content == "" {
		return domain.Story{}, ErrTitleAndContentRequired
	}
	if input.Genre != "" && !domain.KnownGenre(input.Genre) {
		return domain.Story{}, ErrInvalidGenre
	}
	user, err := a.getUser(userID)
	if err != nil {
		return domain.Story{}, err
	}
	story := domain.Story{
		ID:            util.NewID(),
		Title:         input.Title,
		Content:       input.Content,
		Language:      language,
		Level:         input.Level,
		Minutes:       input.Minutes,
		Words:         input.Words,
		Genre:         input.Genre,
		Thumbnail:     input.Thumbnail,
		Description:   input.Description,
		CoverImageURI: input.CoverImageURI,
	}
	languages := user.Languages
	if languages == nil {
		languages = domain.Languages{}
	}
	bucket := languages.Bucket(language)
	bucket.Stories = append(bucket.Stories, story)
	languages[language] = bucket
	if err := a.store.SaveLanguages(userID, languages); err != nil {
		return domain.Story{}, Internal(fmt.Errorf("save languages: %w", err))
	}
	return story, nil
}

// DeleteStory removes exactly the story with the given id.
func (a *App) DeleteStory(userID, language, storyID string) error {
	user, err := a.getUser(userID)
	if err != nil {
		return err
	}
	languages := user.Languages
	bucket, ok := languages[language]
	if !ok || len(bucket.Stories) == 0 {
		return ErrNoStoriesForLanguage
	}
	kept := make([]domain.Story, 0, len(bucket.Stories))
	for _, story := range bucket.Stories {
		if story.ID != storyID {
			kept = append(kept, story)
		}
	}
	if len(kept) == len(bucket.Stories) {
		return ErrStoryNotFound
	}
	bucket.Stories = kept
	languages[language] = bucket
	if err := a.store.SaveLanguages(userID, languages); err != nil {
		return Internal(fmt.Errorf("save languages: %w", err))
	}
	return nil
}

// ListWords returns the saved words for a language.
func (a *App) ListWords(userID, language string) ([]domain.SavedWord, error) {
	user, err := a.getUser(userID)
	if err != nil {
		return nil, err
	}
	words := user.Languages.Bucket(language).Words
	if words == nil {
		words = []domain.SavedWord{}
	}
	return words, nil
}

// AddWord validates input, assigns a fresh id, and appends the word to the
// language bucket.
func (a *App) AddWord(userID, language string, input WordInput) (domain.SavedWord, error) {
	if input.Word == "" || input.Meaning == "" {
		return domain.SavedWord{}, ErrWordAndMeaningRequired
	}
	user, err := a.getUser(userID)
	if err != nil {
		return domain.SavedWord{}, err
	}
	word := domain.SavedWord{
		ID:      util.NewID(),
		Word:    input.Word,
		Meaning: input.Meaning,
	}
	languages := user.Languages
	if languages == nil {
		languages = domain.Languages{}
	}
	bucket := languages.Bucket(language)
	bucket.Words = append(bucket.Words, word)
	languages[language] = bucket
	if err := a.store.SaveLanguages(userID, languages); err != nil {
		return domain.SavedWord{}, Internal(fmt.Errorf("save languages: %w", err))
	}
	return word, nil
}

// DeleteWord removes exactly the word with the given id.
func (a *App) DeleteWord(userID, language, wordID string) error {
	user, err := a.getUser(userID)
	if err != nil {
		return err
	}
	languages := user.Languages
	bucket, ok := languages[language]
	if !ok || len(bucket.Words) == 0 {
		return ErrNoWordsForLanguage
	}
	kept := make([]domain.SavedWord, 0, len(bucket.Words))
	for _, word := range bucket.Words {
		if word.ID != wordID {
			kept = append(kept, word)
		}
	}
	if len(kept) == len(bucket.Words) {
		return ErrWordNotFound
	}
	bucket.Words = kept
	languages[language] = bucket
	if err := a.store.SaveLanguages(userID, languages); err != nil {
		return Internal(fmt.Errorf("save languages: %w", err))
	}
	return nil
}

func (a *App) getUser(userID string) (domain.User, error) {
	user, ok, err := a.store.GetUserByID(userID)
	if err != nil {
		return domain.User{}, Internal(fmt.Errorf("fetch user: %w", err))
	}
	if !ok {
		return domain.User{}, ErrUserNotFound
	}
	return user, nil
}
