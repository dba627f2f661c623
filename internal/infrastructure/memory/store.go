package memory

import (
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/wms-platform/slotting-simulator/internal/domain"
)

type articleRecord struct {
	attributes *domain.ArticleAttributes
	palletSize int
	rank       int
	class      int
}

// Store is a mutex guarded in-memory warehouse. It implements every
// warehouse contract and is the default backend of the CLI and tests.
type Store struct {
	mu sync.RWMutex

	slots   map[int]*domain.Slot
	slotIDs []int
	byCode  map[string]int

	holdings     map[int]map[domain.ArticleKey]int
	reservations map[int]map[domain.ArticleKey]int

	articles  map[domain.ArticleKey]*articleRecord
	movements []domain.Movement
	sales     []domain.SalesFigure
	orders    []domain.OrderLine
}

var _ domain.WarehouseStore = (*Store)(nil)

// NewStore creates an empty Store
func NewStore() *Store {
	return &Store{
		slots:        make(map[int]*domain.Slot),
		byCode:       make(map[string]int),
		holdings:     make(map[int]map[domain.ArticleKey]int),
		reservations: make(map[int]map[domain.ArticleKey]int),
		articles:     make(map[domain.ArticleKey]*articleRecord),
	}
}

// AddSlot registers a slot, replacing any slot with the same id
func (s *Store) AddSlot(slot domain.Slot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.slots[slot.ID]; !ok {
		s.slotIDs = append(s.slotIDs, slot.ID)
		sort.Ints(s.slotIDs)
	}
	if slot.Unit == "" && slot.Aisle == "" {
		slot.Unit, slot.Aisle, slot.Position = domain.ParseSlotCode(slot.Code)
	}
	slot.FillRatio = 0
	s.slots[slot.ID] = &slot
	s.byCode[slot.Code] = slot.ID
}

// AddArticle registers an article with its dimensions and pallet size
func (s *Store) AddArticle(article domain.ArticleKey, attributes domain.ArticleAttributes, palletSize int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.articles[article] = &articleRecord{attributes: &attributes, palletSize: palletSize}
}

// AddMovement records a historic stock movement. Slot id 0 marks a location
// outside the warehouse.
func (s *Store) AddMovement(movement domain.Movement) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.movements = append(s.movements, movement)
}

// AddSalesFigure records a historic sale
func (s *Store) AddSalesFigure(figure domain.SalesFigure) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sales = append(s.sales, figure)
}

// AddOrderLine records a pick pool line
func (s *Store) AddOrderLine(line domain.OrderLine) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders = append(s.orders, line)
}

func (s *Store) isFree(slotID int) bool {
	return len(s.holdings[slotID]) == 0
}

func (s *Store) heldQuantity(slotID int) int {
	total := 0
	for _, quantity := range s.holdings[slotID] {
		total += quantity
	}
	return total
}

// eachSlot visits slots in id order
func (s *Store) eachSlot(fn func(slot *domain.Slot)) {
	for _, id := range s.slotIDs {
		fn(s.slots[id])
	}
}

func (s *Store) palletSize(article domain.ArticleKey) int {
	if record, ok := s.articles[article]; ok {
		return record.palletSize
	}
	return 0
}

func addQuantity(book map[int]map[domain.ArticleKey]int, slotID int, article domain.ArticleKey, quantity int) {
	if book[slotID] == nil {
		book[slotID] = make(map[domain.ArticleKey]int)
	}
	book[slotID][article] += quantity
}

// subtractQuantity lowers a booked quantity, clamping at zero and dropping
// empty entries.
func subtractQuantity(book map[int]map[domain.ArticleKey]int, slotID int, article domain.ArticleKey, quantity int) {
	entries, ok := book[slotID]
	if !ok {
		return
	}
	if _, ok := entries[article]; !ok {
		return
	}
	entries[article] -= quantity
	if entries[article] <= 0 {
		delete(entries, article)
	}
	if len(entries) == 0 {
		delete(book, slotID)
	}
}

func sortedArticles(entries map[domain.ArticleKey]int) []domain.ArticleKey {
	keys := make([]domain.ArticleKey, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return articleLess(keys[i], keys[j]) })
	return keys
}

func articleLess(a, b domain.ArticleKey) bool {
	if a.Number != b.Number {
		return a.Number < b.Number
	}
	return a.Variant < b.Variant
}

// rankByVolume orders articles by summed quantity, highest first
func rankByVolume(volume map[domain.ArticleKey]int) []domain.ArticleKey {
	keys := make([]domain.ArticleKey, 0, len(volume))
	for key := range volume {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if volume[keys[i]] != volume[keys[j]] {
			return volume[keys[i]] > volume[keys[j]]
		}
		return articleLess(keys[i], keys[j])
	})
	return keys
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func codeNumber(part string) int {
	n, _ := strconv.Atoi(part)
	return n
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
