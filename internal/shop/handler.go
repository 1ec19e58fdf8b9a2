package shop

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/mkovacevic/shopfront/internal/auth"
	"github.com/mkovacevic/shopfront/internal/store"
	"github.com/mkovacevic/shopfront/internal/telemetry/metrics"
	"github.com/mkovacevic/shopfront/internal/views"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type storefront interface {
	Products(ctx context.Context) []*store.Product
	ProductByID(ctx context.Context, id int) (*store.Product, error)
	CategoryByID(ctx context.Context, id int) (*store.Category, error)
	GetUserByID(ctx context.Context, id int) (*store.User, error)
	CommentsForProduct(ctx context.Context, productID int) []*store.Comment
	AddComment(ctx context.Context, comment *store.Comment) error
}

type productView struct {
	ID          int
	Name        string
	Category    string
	Price       float64
	Description string
}

type homePageData struct {
	User     *auth.Principal
	Products []productView
}

type productPageData struct {
	User     *auth.Principal
	Product  *store.Product
	Category string
	Comments []*store.Comment
}

type profilePageData struct {
	User *store.User
}

type Handler struct {
	store          storefront
	authService    *auth.Service
	cookies        *auth.CookieCodec
	views          *views.Renderer
	metricsManager *metrics.Manager
}

func NewHandler(
	storefrontStore storefront,
	authService *auth.Service,
	cookies *auth.CookieCodec,
	viewsRenderer *views.Renderer,
	metricsManager *metrics.Manager,
) *Handler {
	return &Handler{
		store:          storefrontStore,
		authService:    authService,
		cookies:        cookies,
		views:          viewsRenderer,
		metricsManager: metricsManager,
	}
}

// SetupRoutes registers the storefront routes. Profile and comment
// posting sit behind the session gate; browsing does not.
func (handler *Handler) SetupRoutes(router *mux.Router, sessionGate mux.MiddlewareFunc) {
	router.HandleFunc("/", handler.handleHome).Methods("GET").Name("home")
	router.HandleFunc("/product/{id}", handler.handleProduct).Methods("GET").Name("product")
	router.Handle(
		"/profile",
		sessionGate(http.HandlerFunc(handler.handleProfile)),
	).Methods("GET").Name("profile")
	router.Handle(
		"/product/{id}/comment",
		sessionGate(http.HandlerFunc(handler.handleAddComment)),
	).Methods("POST").Name("new-comment")
}

func (handler *Handler) handleHome(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	products := handler.store.Products(ctx)
	productViews := make([]productView, 0, len(products))
	for _, p := range products {
		categoryName := ""
		if category, err := handler.store.CategoryByID(ctx, p.CategoryID); err == nil {
			categoryName = category.Name
		}
		productViews = append(productViews, productView{
			ID:          p.ID,
			Name:        p.Name,
			Category:    categoryName,
			Price:       p.Price,
			Description: p.Description,
		})
	}

	handler.renderPage(w, "index.html", homePageData{
		User:     handler.principalFromRequest(r),
		Products: productViews,
	})
}

func (handler *Handler) handleProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "error, id NaN", http.StatusBadRequest)
		return
	}

	product, err := handler.store.ProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			http.Error(w, "product not found", http.StatusNotFound)
			return
		}
		log.Errorf("get product %d: %s", id, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	categoryName := ""
	if category, err := handler.store.CategoryByID(ctx, product.CategoryID); err == nil {
		categoryName = category.Name
	}

	handler.renderPage(w, "product.html", productPageData{
		User:     handler.principalFromRequest(r),
		Product:  product,
		Category: categoryName,
		Comments: handler.store.CommentsForProduct(ctx, id),
	})
}

func (handler *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		// the session gate always runs first; treat this as a bug
		log.Error("profile handler reached without a principal")
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	user, err := handler.store.GetUserByID(r.Context(), principal.ID)
	if err != nil {
		log.Errorf("get profile user %d: %s", principal.ID, err)
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	handler.renderPage(w, "profile.html", profilePageData{
		User: user,
	})
}

func (handler *Handler) handleAddComment(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		log.Error("comment handler reached without a principal")
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	productID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "error, id NaN", http.StatusBadRequest)
		return
	}

	if err := r.ParseForm(); err != nil {
		log.Errorf("add comment failed, parse form error: %s", err)
		http.Error(w, "parse form error", http.StatusInternalServerError)
		return
	}

	text := r.Form.Get("text")
	if text == "" {
		http.Error(w, "error, text empty", http.StatusBadRequest)
		return
	}

	// stored as given; the template escapes it at render time
	comment := &store.Comment{
		ProductID: productID,
		Username:  principal.Username,
		Text:      text,
	}
	if err := handler.store.AddComment(r.Context(), comment); err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			http.Error(w, "product not found", http.StatusNotFound)
			return
		}
		log.Errorf("add comment to product %d: %s", productID, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	handler.metricsManager.CounterComments.Inc()
	log.Tracef("new comment %d on product %d by %s", comment.ID, productID, principal.Username)

	http.Redirect(w, r, fmt.Sprintf("/product/%d", productID), http.StatusFound)
}

// principalFromRequest resolves the session on pages that render for
// both anonymous and logged-in visitors. Any failure means anonymous.
func (handler *Handler) principalFromRequest(r *http.Request) *auth.Principal {
	token, ok := handler.cookies.Read(r)
	if !ok {
		return nil
	}

	principal, err := handler.authService.Authorize(r.Context(), token)
	if err != nil {
		return nil
	}
	return principal
}

func (handler *Handler) renderPage(w http.ResponseWriter, name string, data any) {
	if err := handler.views.Render(w, name, http.StatusOK, data); err != nil {
		log.Errorf("render %s: %s", name, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
