package model

import "time"

// BetStatus é o estado de revisão de um site de apostas (mantido pela camada externa)
type BetStatus string

const (
	BetNone        BetStatus = "none"
	BetSuspect     BetStatus = "suspect"
	BetApproved    BetStatus = "approved"
	BetDisapproved BetStatus = "disapproved"
)

// Bet é o site alvo de uma varredura de compliance
type Bet struct {
	ID     int64     `json:"id" db:"id"`
	Name   string    `json:"name" db:"name"`
	URL    string    `json:"url" db:"url"`
	Status BetStatus `json:"status" db:"status"`
	Score  int       `json:"score" db:"score"`
}

// User é o operador que disparou a varredura (opcional)
type User struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// Cron guarda a expressão de recorrência que gera novas Tasks para uma Bet
type Cron struct {
	ID         int64  `json:"id" db:"id"`
	Expression string `json:"expression" db:"expression"`
}

// Task é uma execução de varredura contra uma Bet
type Task struct {
	ID           int64      `json:"id" db:"id"`
	UUID         string     `json:"uuid" db:"uuid"`
	Status       TaskStatus `json:"status" db:"status"`
	ErrorMessage *string    `json:"errorMessage,omitempty" db:"error_message"`
	Duration     *int64     `json:"duration,omitempty" db:"duration"` // milissegundos
	ScheduledAt  *time.Time `json:"scheduledAt,omitempty" db:"scheduled_at"`
	FinishedAt   *time.Time `json:"finishedAt,omitempty" db:"finished_at"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt" db:"updated_at"`

	Bet  Bet   `json:"bet"`
	User *User `json:"user,omitempty"`
	Cron *Cron `json:"cron,omitempty"`
}

// Box é um retângulo no layout da página (pixels CSS)
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Size representa viewport ou dimensões da página
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// RGB é uma cor resolvida, canais 0..255
type RGB struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// Geometry agrupa os campos geométricos comuns a Property e OCR
type Geometry struct {
	ProportionPercentage   float64 `json:"proportionPercentage" db:"proportion_percentage"`
	ScrollPercentage       float64 `json:"scrollPercentage" db:"scroll_percentage"`
	DistanceToTop          float64 `json:"distanceToTop" db:"distance_to_top"`
	IsHidden               bool    `json:"isHidden" db:"is_hidden"`
	IsVisible              bool    `json:"isVisible" db:"is_visible"`
	IsInViewport           bool    `json:"isInViewport" db:"is_in_viewport"`
	IsIntersectingViewport bool    `json:"isIntersectingViewport" db:"is_intersecting_viewport"`
	HasChildNodes          bool    `json:"hasChildNodes" db:"has_child_nodes"`
	Viewport               Size    `json:"viewport" db:"viewport"`
	ElementBox             Box     `json:"elementBox" db:"element_box"`
	PageDimensions         Size    `json:"pageDimensions" db:"page_dimensions"`
}

// Property é o retrato visual de um elemento que casou com o vocabulário
type Property struct {
	ID     int64 `json:"id" db:"id"`
	TaskID int64 `json:"taskId" db:"task_id"`
	Geometry

	Contrast        float64  `json:"contrast" db:"contrast"`
	Text            string   `json:"text" db:"text"`
	Matches         []string `json:"matches" db:"-"`
	TextColor       string   `json:"textColor" db:"text_color"`
	TextRGB         RGB      `json:"textRGB" db:"text_rgb"`
	BackgroundColor string   `json:"backgroundColor" db:"background_color"`
	BackgroundRGB   RGB      `json:"backgroundRGB" db:"background_rgb"`
}

// OCR é uma unidade de detecção derivada de screenshot
type OCR struct {
	ID     int64 `json:"id" db:"id"`
	TaskID int64 `json:"taskId" db:"task_id"`
	Geometry

	Images      []Image      `json:"images,omitempty" db:"-"`
	Compliances []Compliance `json:"compliances,omitempty" db:"-"`
}

// Image é um screenshot endereçado por conteúdo
type Image struct {
	ID      int64    `json:"id" db:"id"`
	Hash    string   `json:"hash" db:"hash"`
	Path    string   `json:"path" db:"path"`
	Content []string `json:"content" db:"-"` // nil até o OCR rodar
	OCRIDs  []int64  `json:"ocrIds,omitempty" db:"-"`
}

// ComplianceType classifica uma frase regulatória
type ComplianceType string

const (
	BonusIncentive                ComplianceType = "BonusIncentive"
	ResponsibleGamblingAdvisement ComplianceType = "ResponsibleGamblingAdvisement"
	LegalAgeAdvisement            ComplianceType = "LegalAgeAdvisement"
)

// Compliance é uma frase canônica do vocabulário (somente leitura para o core)
type Compliance struct {
	ID    int64          `json:"id" db:"id"`
	Value string         `json:"value" db:"value"`
	Type  ComplianceType `json:"type" db:"type"`
}

// Phrases extrai os valores do vocabulário preservando a ordem
func Phrases(vocab []Compliance) []string {
	out := make([]string, 0, len(vocab))
	for _, c := range vocab {
		out = append(out, c.Value)
	}
	return out
}
