package moderation

import (
	"bufio"
	"bytes"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// Dictionary is the merged content of a directory of word lists.
type Dictionary struct {
	Words []string
	// Languages are the list names, "fr.txt" gives "fr"
	Languages []string
}

// LoadDictionary reads every .txt file of dir, one word per line.
// Blank lines and lines starting with '#' are skipped, duplicates are
// merged. Words come back sorted.
func LoadDictionary(fsys fs.FS, dir string) (Dictionary, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return Dictionary{}, err
	}

	var dictionary Dictionary
	unique := make(map[string]struct{})
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".txt" {
			continue
		}
		dictionary.Languages = append(dictionary.Languages, strings.TrimSuffix(entry.Name(), ".txt"))

		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return Dictionary{}, err
		}
		// Scanner copes with \r\n endings
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			unique[line] = struct{}{}
		}
		if err := scanner.Err(); err != nil {
			return Dictionary{}, err
		}
	}

	dictionary.Words = make([]string, 0, len(unique))
	for word := range unique {
		dictionary.Words = append(dictionary.Words, word)
	}
	sort.Strings(dictionary.Words)
	return dictionary, nil
}
