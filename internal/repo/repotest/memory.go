// Package repotest tem um repositório em memória com os mesmos métodos de
// repo.Postgres, para testes de pipeline, worker e scripts sem banco.
package repotest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Ashu11-A/BetScraper-API-sub000/internal/model"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/repo"
)

type Memory struct {
	mu  sync.Mutex
	seq int64

	Bets        map[int64]model.Bet
	Crons       map[int64]model.Cron // por bet id
	Vocab       []model.Compliance
	Tasks       map[int64]*model.Task
	Properties  []model.Property
	OCRs        map[int64]*model.OCR
	Images      map[int64]*model.Image
	Compliances map[int64][]int64 // ocr id -> compliance ids
	History     map[int64][]model.TaskStatus

	// FailOn força erro no método com esse nome
	FailOn map[string]error
}

func NewMemory(vocab ...model.Compliance) *Memory {
	return &Memory{
		Bets:        map[int64]model.Bet{},
		Crons:       map[int64]model.Cron{},
		Vocab:       vocab,
		Tasks:       map[int64]*model.Task{},
		OCRs:        map[int64]*model.OCR{},
		Images:      map[int64]*model.Image{},
		Compliances: map[int64][]int64{},
		History:     map[int64][]model.TaskStatus{},
		FailOn:      map[string]error{},
	}
}

func (m *Memory) fail(op string) error {
	if err := m.FailOn[op]; err != nil {
		return fmt.Errorf("%s: %w: %w", op, model.ErrPersistence, err)
	}
	return nil
}

func (m *Memory) next() int64 {
	m.seq++
	return m.seq
}

func (m *Memory) CreateTask(_ context.Context, t *model.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateTask"); err != nil {
		return err
	}
	t.ID = m.next()
	if t.UUID == "" {
		t.UUID = fmt.Sprintf("00000000-0000-0000-0000-%012d", t.ID)
	}
	t.Status = model.TaskScheduled
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	cp := *t
	m.Tasks[t.ID] = &cp
	m.History[t.ID] = []model.TaskStatus{model.TaskScheduled}
	return nil
}

func (m *Memory) GetTask(_ context.Context, id int64) (*model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.Tasks[id]
	if !ok {
		return nil, fmt.Errorf("get task %d: %w", id, model.ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

func (m *Memory) TransitionTask(_ context.Context, id int64, from, to model.TaskStatus, p model.TaskPatch) error {
	if err := model.ValidateTransition(from, to); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("TransitionTask"); err != nil {
		return err
	}
	t, ok := m.Tasks[id]
	if !ok || t.Status != from {
		return fmt.Errorf("%w: task %d is no longer %s", model.ErrInvalidTransition, id, from)
	}
	t.Status = to
	if p.ScheduledAt != nil {
		t.ScheduledAt = p.ScheduledAt
	}
	if p.FinishedAt != nil {
		t.FinishedAt = p.FinishedAt
	}
	if p.Duration != nil {
		t.Duration = p.Duration
	}
	if p.ErrorMessage != nil {
		t.ErrorMessage = p.ErrorMessage
	}
	t.UpdatedAt = time.Now()
	m.History[id] = append(m.History[id], to)
	return nil
}

// Statuses é a sequência de status pela qual a Task passou
func (m *Memory) Statuses(id int64) []model.TaskStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.TaskStatus(nil), m.History[id]...)
}

func (m *Memory) ListProperties(_ context.Context, taskID int64) ([]model.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("ListProperties"); err != nil {
		return nil, err
	}
	var out []model.Property
	for _, p := range m.Properties {
		if p.TaskID == taskID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *Memory) CreateProperty(_ context.Context, p *model.Property) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateProperty"); err != nil {
		return err
	}
	p.ID = m.next()
	m.Properties = append(m.Properties, *p)
	return nil
}

func (m *Memory) CreateOCR(_ context.Context, o *model.OCR) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateOCR"); err != nil {
		return err
	}
	o.ID = m.next()
	cp := *o
	m.OCRs[o.ID] = &cp
	return nil
}

func (m *Memory) GetOCR(_ context.Context, id int64) (*model.OCR, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.OCRs[id]
	if !ok {
		return nil, fmt.Errorf("get ocr %d: %w", id, model.ErrNotFound)
	}
	out := *o
	out.Images = nil
	for _, img := range m.sortedImages() {
		for _, oid := range img.OCRIDs {
			if oid == id {
				out.Images = append(out.Images, img)
				break
			}
		}
	}
	out.Compliances = m.compliancesOf(id)
	return &out, nil
}

func (m *Memory) compliancesOf(ocrID int64) []model.Compliance {
	var out []model.Compliance
	for _, cid := range m.Compliances[ocrID] {
		for _, c := range m.Vocab {
			if c.ID == cid {
				out = append(out, c)
			}
		}
	}
	return out
}

// OCRCompliances devolve o conjunto persistido de uma unidade
func (m *Memory) OCRCompliances(ocrID int64) []model.Compliance {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.compliancesOf(ocrID)
}

func (m *Memory) SetOCRCompliances(_ context.Context, ocrID int64, ids []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("SetOCRCompliances"); err != nil {
		return err
	}
	m.Compliances[ocrID] = append([]int64(nil), ids...)
	return nil
}

func (m *Memory) ListOCRIDs(context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int64, 0, len(m.OCRs))
	for id := range m.OCRs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *Memory) sortedImages() []model.Image {
	out := make([]model.Image, 0, len(m.Images))
	for _, img := range m.Images {
		cp := *img
		cp.OCRIDs = append([]int64(nil), img.OCRIDs...)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Memory) ImagesByHash(_ context.Context, hash string) ([]model.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Image
	for _, img := range m.sortedImages() {
		if img.Hash == hash {
			out = append(out, img)
		}
	}
	return out, nil
}

func (m *Memory) ImagesWithoutContent(context.Context) ([]model.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Image
	for _, img := range m.sortedImages() {
		if img.Content == nil {
			out = append(out, img)
		}
	}
	return out, nil
}

func (m *Memory) DuplicateHashes(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := map[string]int{}
	for _, img := range m.Images {
		count[img.Hash]++
	}
	var out []string
	for h, n := range count {
		if n > 1 {
			out = append(out, h)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *Memory) CreateImage(_ context.Context, img *model.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateImage"); err != nil {
		return err
	}
	img.ID = m.next()
	cp := *img
	cp.OCRIDs = nil
	m.Images[img.ID] = &cp
	return nil
}

func (m *Memory) AddImageOCRs(_ context.Context, imageID int64, ocrIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	img, ok := m.Images[imageID]
	if !ok {
		return fmt.Errorf("link image %d: %w", imageID, model.ErrNotFound)
	}
	for _, id := range ocrIDs {
		dup := false
		for _, have := range img.OCRIDs {
			if have == id {
				dup = true
				break
			}
		}
		if !dup {
			img.OCRIDs = append(img.OCRIDs, id)
		}
	}
	return nil
}

func (m *Memory) SetImageContent(_ context.Context, imageID int64, lines []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("SetImageContent"); err != nil {
		return err
	}
	img, ok := m.Images[imageID]
	if !ok {
		return fmt.Errorf("set image %d content: %w", imageID, model.ErrNotFound)
	}
	if lines == nil {
		lines = []string{}
	}
	img.Content = append([]string{}, lines...)
	return nil
}

func (m *Memory) DeleteImage(_ context.Context, imageID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Images[imageID]; !ok {
		return fmt.Errorf("delete image %d: %w", imageID, model.ErrNotFound)
	}
	delete(m.Images, imageID)
	return nil
}

func (m *Memory) OCRIDsByImage(_ context.Context, imageID int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	img, ok := m.Images[imageID]
	if !ok {
		return nil, nil
	}
	ids := append([]int64(nil), img.OCRIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *Memory) ListCompliances(context.Context) ([]model.Compliance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("ListCompliances"); err != nil {
		return nil, err
	}
	return append([]model.Compliance(nil), m.Vocab...), nil
}

func (m *Memory) GetBet(_ context.Context, id int64) (*model.Bet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.Bets[id]
	if !ok {
		return nil, fmt.Errorf("get bet %d: %w", id, model.ErrNotFound)
	}
	return &b, nil
}

func (m *Memory) ListScheduledBets(context.Context) ([]repo.BetSchedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repo.BetSchedule
	for id, c := range m.Crons {
		if b, ok := m.Bets[id]; ok {
			out = append(out, repo.BetSchedule{Bet: b, Cron: c})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Bet.ID < out[j].Bet.ID })
	return out, nil
}

// ImageList é um snapshot ordenado por id
func (m *Memory) ImageList() []model.Image {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedImages()
}

// PropertyList é um snapshot das Properties
func (m *Memory) PropertyList() []model.Property {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Property(nil), m.Properties...)
}
