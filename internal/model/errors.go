package model

import "errors"

var (
	// ErrNavigation: a rede nunca ficou ociosa; fatal para a Task
	ErrNavigation = errors.New("navigation error")
	// ErrElementStale: elemento desanexado durante a extração; só ele é pulado
	ErrElementStale = errors.New("element stale")
	// ErrScreenshotTooLarge: screenshot acima do limite; descartado por política
	ErrScreenshotTooLarge = errors.New("screenshot too large")
	// ErrOCRService: reconhecimento falhou ou serviço inacessível; fica para o backfill
	ErrOCRService = errors.New("ocr service error")
	// ErrPersistence: falha de banco; consome uma tentativa
	ErrPersistence = errors.New("persistence error")
	// ErrInvalidTransition: transição de status fora da tabela
	ErrInvalidTransition = errors.New("invalid task status transition")
	// ErrNotFound: registro inexistente
	ErrNotFound = errors.New("not found")
)
