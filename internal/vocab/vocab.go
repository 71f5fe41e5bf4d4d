// Package vocab loads the operator-supplied wordlist. The list is read once
// at startup and immutable afterwards, so it is shared freely between
// workers.
package vocab

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tyler-smith/go-bip39/wordlists"
)

// List is an ordered, de-duplicated word list.
type List struct {
	words []string
	index map[string]int
}

// Load reads words from path, one per line. Blank lines, comment lines
// starting with '#', and duplicates are filtered with a warning; none of
// these are fatal. Words outside the BIP39 English list are reported but
// kept, since vendor wallets occasionally accept them.
func Load(path string, log *logrus.Logger) (*List, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening wordlist: %w", err)
	}
	defer file.Close()

	l := &List{index: make(map[string]int)}

	bip39Words := make(map[string]struct{}, len(wordlists.English))
	for _, w := range wordlists.English {
		bip39Words[w] = struct{}{}
	}

	var blank, dropped, foreign int
	line := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line++
		word := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if word == "" {
			blank++
			log.WithField("line", line).Warn("blank line dropped from wordlist")
			continue
		}
		if strings.HasPrefix(word, "#") {
			continue
		}
		if _, dup := l.index[word]; dup {
			dropped++
			log.WithField("word", word).Warn("duplicate word dropped from wordlist")
			continue
		}
		if _, ok := bip39Words[word]; !ok {
			foreign++
			log.WithField("word", word).Warn("word is not in the BIP39 English list")
		}
		l.index[word] = len(l.words)
		l.words = append(l.words, word)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading wordlist: %w", err)
	}
	if len(l.words) == 0 {
		return nil, fmt.Errorf("wordlist %s contains no usable words", path)
	}

	log.WithFields(logrus.Fields{
		"path":       path,
		"words":      len(l.words),
		"blank":      blank,
		"duplicates": dropped,
		"non_bip39":  foreign,
	}).Info("wordlist loaded")

	return l, nil
}

// FromWords builds a List directly, filtering duplicates silently. Used by
// tests and the self-test command.
func FromWords(words []string) *List {
	l := &List{index: make(map[string]int, len(words))}
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if _, dup := l.index[w]; dup {
			continue
		}
		l.index[w] = len(l.words)
		l.words = append(l.words, w)
	}
	return l
}

// Len returns the number of words.
func (l *List) Len() int { return len(l.words) }

// Word returns the word at position i.
func (l *List) Word(i int) string { return l.words[i] }

// Words returns the underlying slice. Callers must not modify it.
func (l *List) Words() []string { return l.words }

// Index returns the position of word, or -1 when absent.
func (l *List) Index(word string) int {
	if i, ok := l.index[word]; ok {
		return i
	}
	return -1
}
