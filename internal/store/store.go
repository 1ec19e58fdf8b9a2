package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrProductNotFound  = errors.New("product not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrUsernameTaken    = errors.New("username already taken")
)

type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	// bcrypt token, never the plaintext; excluded from JSON and views
	PasswordHash string `json:"-"`
	Profile      string `json:"profile"`
}

type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Product struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	CategoryID  int     `json:"category_id"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
}

type Comment struct {
	ID        int       `json:"id"`
	ProductID int       `json:"product_id"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Store owns all storefront data. Everything is transient and process
// local: users are created at seed time and immutable afterwards,
// comments are append only. All access goes through this API.
type Store struct {
	mutex sync.RWMutex

	usersByID       map[int]*User
	usersByUsername map[string]*User
	categories      map[int]*Category
	products        map[int]*Product
	comments        []*Comment
	nextCommentID   int
}

func New() *Store {
	return &Store{
		usersByID:       make(map[int]*User),
		usersByUsername: make(map[string]*User),
		categories:      make(map[int]*Category),
		products:        make(map[int]*Product),
		nextCommentID:   1,
	}
}

func (s *Store) addUser(user *User) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.usersByUsername[user.Username]; ok {
		return ErrUsernameTaken
	}

	s.usersByID[user.ID] = user
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*User, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	user, ok := s.usersByUsername[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *Store) GetUserByID(_ context.Context, id int) (*User, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	user, ok := s.usersByID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *Store) Categories(_ context.Context) []*Category {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	categories := make([]*Category, 0, len(s.categories))
	for _, c := range s.categories {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool {
		return categories[i].ID < categories[j].ID
	})
	return categories
}

func (s *Store) CategoryByID(_ context.Context, id int) (*Category, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	category, ok := s.categories[id]
	if !ok {
		return nil, ErrCategoryNotFound
	}
	return category, nil
}

func (s *Store) Products(_ context.Context) []*Product {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	products := make([]*Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool {
		return products[i].ID < products[j].ID
	})
	return products
}

func (s *Store) ProductByID(_ context.Context, id int) (*Product, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	product, ok := s.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	return product, nil
}

func (s *Store) CommentsForProduct(_ context.Context, productID int) []*Comment {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var comments []*Comment
	for _, c := range s.comments {
		if c.ProductID == productID {
			comments = append(comments, c)
		}
	}
	return comments
}

// AddComment appends a new comment and assigns its ID. The product must
// exist; the comment text is stored as given and escaped at render time.
func (s *Store) AddComment(_ context.Context, comment *Comment) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.products[comment.ProductID]; !ok {
		return ErrProductNotFound
	}

	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now()
	}
	comment.ID = s.nextCommentID
	s.nextCommentID++
	s.comments = append(s.comments, comment)
	return nil
}
