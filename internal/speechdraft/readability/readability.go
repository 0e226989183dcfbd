// Анализ читаемости текста речи.
//
// Основные возможности:
//   - Подсчет слов, предложений и слогов, индексы Флеша и Флеша-Кинкейда.
//   - Поиск наречий и пассивного залога.
//   - Выделение сложных и очень сложных предложений.
//   - Оценка времени произнесения речи.
package readability

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/jdkato/prose/v2"
	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
)

const (
	DefaultWordsPerMinute = 130

	HardGrade     = 10
	VeryHardGrade = 14
)

var (
	wordRegex   = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}]+)*`)
	adverbRegex = regexp.MustCompile(`(?i)\b\w+ly\b`)
)

// Формы глагола to be, после которых причастие (VBN) образует пассивный залог
var beForms = map[string]struct{}{
	"am": {}, "is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {}, "being": {},
	"'m": {}, "'s": {}, "'re": {},
}

// Слова на -ly, которые не являются наречиями
var adverbExceptions = map[string]struct{}{
	"only": {}, "family": {}, "early": {}, "reply": {}, "supply": {}, "apply": {},
	"july": {}, "holy": {}, "fly": {}, "ugly": {}, "belly": {}, "lily": {},
	"rely": {}, "daily": {}, "friendly": {}, "lovely": {}, "lonely": {}, "likely": {},
	"silly": {}, "jelly": {}, "bully": {}, "italy": {}, "ally": {}, "rally": {},
	"elderly": {}, "costly": {}, "lively": {}, "curly": {}, "chilly": {}, "sly": {},
	"assembly": {}, "anomaly": {}, "monopoly": {}, "butterfly": {}, "kelly": {}, "emily": {},
}

// Токенизатор предложений и модель разметки частей речи загружаются один раз на процесс
var (
	nlpOnce   sync.Once
	nlpErr    error
	splitter  *sentences.DefaultSentenceTokenizer
	tagsModel *prose.Model
)

func loadNLP() error {
	nlpOnce.Do(func() {
		splitter, nlpErr = english.NewSentenceTokenizer(nil)
		if nlpErr != nil {
			nlpErr = fmt.Errorf("load sentence tokenizer: %w", nlpErr)
			return
		}
		doc, err := prose.NewDocument("", prose.WithSegmentation(false), prose.WithExtraction(false))
		if err != nil {
			nlpErr = fmt.Errorf("load pos tagger: %w", err)
			return
		}
		tagsModel = doc.Model
	})
	return nlpErr
}

type Options struct {
	WordsPerMinute int
}

// Предложение с оценкой сложности
type Sentence struct {
	Text  string  `json:"text"`
	Words int     `json:"words"`
	Grade float64 `json:"grade"`
}

type Report struct {
	Words      int `json:"words"`
	Sentences  int `json:"sentences"`
	Syllables  int `json:"syllables"`
	Characters int `json:"characters"`
	Paragraphs int `json:"paragraphs"`

	ReadingEase float64 `json:"reading_ease"`
	GradeLevel  float64 `json:"grade_level"`

	Adverbs      []string `json:"adverbs"`
	PassiveVoice []string `json:"passive_voice"`

	HardSentences     []Sentence `json:"hard_sentences"`
	VeryHardSentences []Sentence `json:"very_hard_sentences"`

	WordsPerMinute  int           `json:"words_per_minute"`
	SpeakingTime    time.Duration `json:"-"`
	SpeakingSeconds int           `json:"speaking_time_seconds"`
}

// Analyze считает метрики читаемости. Блоки текста разделяются переводом строки,
// предложение не переходит через границу блока.
// Ошибка возвращается, только если не удалось загрузить языковые модели.
func Analyze(text string, opts Options) (Report, error) {
	wpm := opts.WordsPerMinute
	if wpm <= 0 {
		wpm = DefaultWordsPerMinute
	}

	report := Report{
		Adverbs:           []string{},
		PassiveVoice:      []string{},
		HardSentences:     []Sentence{},
		VeryHardSentences: []Sentence{},
		WordsPerMinute:    wpm,
	}
	if err := loadNLP(); err != nil {
		return report, err
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		report.Paragraphs++

		for _, sentence := range splitter.Tokenize(line) {
			raw := strings.TrimSpace(sentence.Text)
			words := wordRegex.FindAllString(raw, -1)
			if len(words) == 0 {
				continue
			}

			syllables := 0
			for _, w := range words {
				syllables += CountSyllables(w)
				report.Characters += len([]rune(w))
			}
			report.Sentences++
			report.Words += len(words)
			report.Syllables += syllables

			grade := gradeLevel(len(words), 1, syllables)
			s := Sentence{Text: raw, Words: len(words), Grade: round(grade)}
			switch {
			case grade >= VeryHardGrade:
				report.VeryHardSentences = append(report.VeryHardSentences, s)
			case grade >= HardGrade:
				report.HardSentences = append(report.HardSentences, s)
			}

			report.Adverbs = append(report.Adverbs, findAdverbs(raw)...)
			passive, err := findPassive(raw)
			if err != nil {
				return report, err
			}
			report.PassiveVoice = append(report.PassiveVoice, passive...)
		}
	}

	if report.Words == 0 {
		return report, nil
	}

	report.ReadingEase = round(readingEase(report.Words, report.Sentences, report.Syllables))
	report.GradeLevel = round(gradeLevel(report.Words, report.Sentences, report.Syllables))

	report.SpeakingTime = (time.Duration(report.Words) * time.Minute / time.Duration(wpm)).Round(time.Second)
	report.SpeakingSeconds = int(report.SpeakingTime / time.Second)
	return report, nil
}

func findAdverbs(sentence string) []string {
	var res []string
	for _, m := range adverbRegex.FindAllString(sentence, -1) {
		if _, ok := adverbExceptions[strings.ToLower(m)]; ok {
			continue
		}
		res = append(res, m)
	}
	return res
}

// findPassive ищет форму to be, за которой, возможно через наречия, идет причастие прошедшего времени.
func findPassive(sentence string) ([]string, error) {
	doc, err := prose.NewDocument(sentence,
		prose.UsingModel(tagsModel),
		prose.WithSegmentation(false),
		prose.WithExtraction(false))
	if err != nil {
		return nil, fmt.Errorf("tag sentence: %w", err)
	}

	var res []string
	tokens := doc.Tokens()
	for i, tok := range tokens {
		if _, ok := beForms[strings.ToLower(tok.Text)]; !ok {
			continue
		}
		for j := i + 1; j < len(tokens); j++ {
			if strings.HasPrefix(tokens[j].Tag, "RB") {
				continue
			}
			if tokens[j].Tag == "VBN" {
				res = append(res, tok.Text+" "+tokens[j].Text)
			}
			break
		}
	}
	return res, nil
}

func readingEase(words, sentenceCount, syllables int) float64 {
	return 206.835 - 1.015*float64(words)/float64(sentenceCount) - 84.6*float64(syllables)/float64(words)
}

func gradeLevel(words, sentenceCount, syllables int) float64 {
	return 0.39*float64(words)/float64(sentenceCount) + 11.8*float64(syllables)/float64(words) - 15.59
}

func round(v float64) float64 {
	return math.Round(v*100) / 100
}

// CountSyllables приблизительно считает слоги по группам гласных.
// Для латиницы учитывается немая e на конце слова.
func CountSyllables(word string) int {
	word = strings.ToLower(word)
	count := 0
	prevVowel := false
	letters := 0
	for _, r := range word {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		v := isVowel(r)
		if v && !prevVowel {
			count++
		}
		prevVowel = v
	}
	if letters == 0 {
		return 0
	}

	if count > 1 && strings.HasSuffix(word, "e") && !strings.HasSuffix(word, "le") &&
		!strings.HasSuffix(word, "ee") {
		count--
	}
	if count == 0 {
		count = 1
	}
	return count
}

func isVowel(r rune) bool {
	return strings.ContainsRune("aeiouyаеёиоуыэюя", r)
}
