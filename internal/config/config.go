package config

import "time"

// Config собирает параметры одного запуска движка. Настройки холста и
// кодирования из самой спецификации живут в timeline.Settings; здесь —
// то, что задается флагами.
type Config struct {
	SpecPath      string
	OutputPath    string
	Workers       int
	Width         int // переопределение холста; 0 — взять из спецификации
	Height        int
	Quality       int // переопределение качества; 0 — взять из спецификации
	VideoEncoder  string // явный кодек из флага; пусто — кодек спецификации или автоопределение
	FetchAttempts int
	FetchTimeout  time.Duration
	PDFDPI        int
	KeepWorkspace bool
}

// DefaultOutput — фиксированное место финального артефакта,
// как у оригинального движка.
const DefaultOutput = "output/final.mp4"
