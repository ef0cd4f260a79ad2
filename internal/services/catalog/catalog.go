// Package catalog serves the product catalog and builds the assistant system
// prompt from it. Products come from the record store with a short in-process
// cache; when the store is down the last good copy is served stale, and the
// prompt falls back to a static price list.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/heritagebox/chat-service/internal/core/records"
)

// DefaultCacheTTL is how long a fetched product list stays fresh.
const DefaultCacheTTL = 5 * time.Minute

// Product is one catalog entry.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       float64
	SKU         string
	Category    string
	Features    string
}

// Service provides catalog access and prompt building.
type Service interface {
	// Products returns the current catalog, possibly stale. A nil slice means
	// the catalog has never been fetched successfully.
	Products(ctx context.Context) []Product

	// SystemPrompt builds the assistant system prompt with current pricing.
	SystemPrompt(ctx context.Context) string
}

// Config holds the catalog service configuration.
type Config struct {
	Store    records.Store
	CacheTTL time.Duration
	Logger   zerolog.Logger
}

type service struct {
	store    records.Store
	cacheTTL time.Duration
	log      zerolog.Logger

	mu        sync.Mutex
	cached    []Product
	fetchedAt time.Time
}

// NewService creates a new catalog service.
func NewService(cfg *Config) (Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("record store is required")
	}
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = DefaultCacheTTL
	}
	return &service{
		store:    cfg.Store,
		cacheTTL: cacheTTL,
		log:      cfg.Logger,
	}, nil
}

// Products returns cached products when fresh, refreshes otherwise, and falls
// back to the stale copy when the store is unreachable.
func (s *service) Products(ctx context.Context) []Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil && time.Since(s.fetchedAt) < s.cacheTTL {
		return s.cached
	}

	recs, err := s.store.List(ctx, records.TableProducts)
	if err != nil {
		if s.cached != nil {
			s.log.Warn().Err(err).Msg("product fetch failed, serving stale catalog")
			return s.cached
		}
		s.log.Warn().Err(err).Msg("product fetch failed, no cached catalog")
		return nil
	}

	products := make([]Product, 0, len(recs))
	for _, rec := range recs {
		name := rec.StringField("Product Name")
		if name == "" {
			name = "Unknown Product"
		}
		products = append(products, Product{
			ID:          rec.ID,
			Name:        name,
			Description: rec.StringField("Description"),
			Price:       rec.FloatField("Price"),
			SKU:         rec.StringField("SKU"),
			Category:    rec.StringField("Category"),
			Features:    rec.StringField("Features"),
		})
	}
	sort.Slice(products, func(i, j int) bool { return products[i].Price < products[j].Price })

	s.cached = products
	s.fetchedAt = time.Now()
	s.log.Debug().Int("count", len(products)).Msg("product catalog refreshed")
	return s.cached
}

// SystemPrompt builds the assistant prompt with the current price list.
func (s *service) SystemPrompt(ctx context.Context) string {
	return buildSystemPrompt(s.Products(ctx))
}

func isPackage(p Product) bool {
	if p.Category == "Package" {
		return true
	}
	for _, marker := range []string{"Package", "Starter", "Popular", "Dusty Rose", "Eternal"} {
		if strings.Contains(p.Name, marker) {
			return true
		}
	}
	return false
}

func isAddOn(p Product) bool {
	return p.Category == "Add-on" || strings.Contains(p.Name, "Add-on")
}

func isSpeedOption(p Product) bool {
	return p.Category == "Service" || strings.Contains(p.Name, "Speed")
}

func writeProductLines(b *strings.Builder, heading string, products []Product, withFeatures bool) {
	if len(products) == 0 {
		return
	}
	b.WriteString("\n" + heading + "\n")
	for _, p := range products {
		fmt.Fprintf(b, "- %s: $%g", p.Name, p.Price)
		if withFeatures && p.Features != "" {
			fmt.Fprintf(b, " (%s)", p.Features)
		}
		if p.Description != "" && p.Description != p.Name {
			b.WriteString(" - " + p.Description)
		}
		b.WriteString("\n")
	}
}

const fallbackPricing = `
📦 FALLBACK PRICING (catalog unavailable):
- Standard photos: $0.50 each
- Large photos (8x10+): $1.00 each
- Slides/negatives: $0.75 each
- VHS/VHS-C: $25 per tape
- 8mm/Hi8/Digital8: $30 per tape
- MiniDV: $20 per tape
- Film reels (8mm/16mm): $40-80 per reel

⚠️ Note: Please check our website for most current pricing.
`

func buildSystemPrompt(products []Product) string {
	var pricing strings.Builder
	if len(products) > 0 {
		var packages, addOns, speed, other []Product
		for _, p := range products {
			switch {
			case isPackage(p):
				packages = append(packages, p)
			case isAddOn(p):
				addOns = append(addOns, p)
			case isSpeedOption(p):
				speed = append(speed, p)
			default:
				other = append(other, p)
			}
		}
		writeProductLines(&pricing, "📦 CURRENT DIGITIZATION PACKAGES:", packages, true)
		writeProductLines(&pricing, "🔧 ADD-ON SERVICES:", addOns, false)
		writeProductLines(&pricing, "⚡ SPEED OPTIONS:", speed, false)
		writeProductLines(&pricing, "📋 OTHER SERVICES:", other, false)
		pricing.WriteString("\n💡 NOTE: All pricing is current as of today. Packages may include multiple services and bulk discounts.\n")
	} else {
		pricing.WriteString(fallbackPricing)
	}

	return `You are Helena, the helpful AI assistant for Heritagebox - a professional media digitization service.

You help customers with:
- Pricing quotes for photo scanning, video transfer, film digitization
- Project status updates and order tracking
- Service information and turnaround times
- Technical questions about digitization processes

Be friendly, professional, and knowledgeable. Always try to provide specific, helpful information.

` + pricing.String() + `

Current turnaround times:
- Standard processing: 2-3 weeks
- Express processing: 1 week (+$50)
- Rush processing: 3-5 days (+$100)
- Large projects may take longer

IMPORTANT INSTRUCTIONS:
- Always use the current pricing information provided above
- When customers ask about packages, explain our main offerings: Starter, Popular, Dusty Rose, and Eternal packages
- Mention that we offer various add-ons like USB drives, online galleries, photo restoration, etc.
- For specific order status, ask for order number, email, or customer details
- Be helpful, professional, and encourage customers to visit our website for full package details

If pricing information seems unavailable, direct customers to check our website or contact us directly for the most current rates.`
}
