package anki

import (
	"archive/zip"
	"crypto/sha1"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const (
	noteTypeName = "English Vocabulary from lexilive (Basic + Reverse)"
	deckDesc     = "English vocabulary with Chinese meanings, exported by lexilive"
	// fieldSep separates note fields in the flds column
	fieldSep = "\x1f"
)

// fieldDefs are the note type fields in flds order
var fieldDefs = []struct {
	name string
	size int
}{
	{"Word", 28},
	{"Phonetic", 18},
	{"PartOfSpeech", 16},
	{"English", 20},
	{"Chinese", 24},
	{"Example", 16},
	{"Image", 20},
	{"Audio", 20},
}

// schema is the Anki 2.1 collection schema (version 11)
const schema = `
CREATE TABLE col (
	id integer PRIMARY KEY, crt integer NOT NULL, mod integer NOT NULL,
	scm integer NOT NULL, ver integer NOT NULL, dty integer NOT NULL,
	usn integer NOT NULL, ls integer NOT NULL, conf text NOT NULL,
	models text NOT NULL, decks text NOT NULL, dconf text NOT NULL,
	tags text NOT NULL
);
CREATE TABLE notes (
	id integer PRIMARY KEY, guid text NOT NULL, mid integer NOT NULL,
	mod integer NOT NULL, usn integer NOT NULL, tags text NOT NULL,
	flds text NOT NULL, sfld text NOT NULL, csum integer NOT NULL,
	flags integer NOT NULL, data text NOT NULL
);
CREATE TABLE cards (
	id integer PRIMARY KEY, nid integer NOT NULL, did integer NOT NULL,
	ord integer NOT NULL, mod integer NOT NULL, usn integer NOT NULL,
	type integer NOT NULL, queue integer NOT NULL, due integer NOT NULL,
	ivl integer NOT NULL, factor integer NOT NULL, reps integer NOT NULL,
	lapses integer NOT NULL, left integer NOT NULL, odue integer NOT NULL,
	odid integer NOT NULL, flags integer NOT NULL, data text NOT NULL
);
CREATE TABLE revlog (
	id integer PRIMARY KEY, cid integer NOT NULL, usn integer NOT NULL,
	ease integer NOT NULL, ivl integer NOT NULL, lastIvl integer NOT NULL,
	factor integer NOT NULL, time integer NOT NULL, type integer NOT NULL
);
CREATE TABLE graves (usn integer NOT NULL, oid integer NOT NULL, type integer NOT NULL);
CREATE INDEX ix_notes_csum ON notes (csum);
CREATE INDEX ix_notes_usn ON notes (usn);
CREATE INDEX ix_cards_usn ON cards (usn);
CREATE INDEX ix_cards_nid ON cards (nid);
CREATE INDEX ix_cards_sched ON cards (did, queue, due);
CREATE INDEX ix_revlog_usn ON revlog (usn);
CREATE INDEX ix_revlog_cid ON revlog (cid);
`

// APKGGenerator creates Anki package files (.apkg)
type APKGGenerator struct {
	deckName string
	deckID   int64
	modelID  int64
	now      time.Time
	cards    []Card
	media    []mediaEntry
}

// mediaEntry is one media file in the package; its zip name is its index
type mediaEntry struct {
	name string // name referenced from note fields
	path string // source file
}

// NewAPKGGenerator creates a new APKG generator
func NewAPKGGenerator(deckName string) *APKGGenerator {
	return newAPKGGenerator(deckName, time.Now())
}

func newAPKGGenerator(deckName string, now time.Time) *APKGGenerator {
	// IDs are timestamps so repeated imports create distinct decks
	id := now.UnixMilli()
	return &APKGGenerator{
		deckName: deckName,
		deckID:   id,
		modelID:  id + 1,
		now:      now,
	}
}

// AddCard adds a card to the generator
func (g *APKGGenerator) AddCard(card Card) {
	g.cards = append(g.cards, card)
}

// GenerateAPKG creates an .apkg file
func (g *APKGGenerator) GenerateAPKG(outputPath string) error {
	tempDir, err := os.MkdirTemp("", "lexilive_anki_*")
	if err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	// Resolve media first, note fields reference the registered names
	g.media = nil
	fields := make([][]string, len(g.cards))
	for i, card := range g.cards {
		fields[i] = g.noteFields(card)
	}

	dbPath := filepath.Join(tempDir, "collection.anki2")
	if err := g.createDatabase(dbPath, fields); err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}

	if err := g.writePackage(outputPath, dbPath); err != nil {
		os.Remove(outputPath)
		return fmt.Errorf("failed to create zip package: %w", err)
	}
	return nil
}

// noteFields returns the field values of a card, registering its media
func (g *APKGGenerator) noteFields(card Card) []string {
	english := card.DefinitionEN
	if english == "" {
		english = "Definition needed"
	}

	var image, audio string
	if name, ok := g.addMedia(card, card.ImageFile); ok {
		image = formatImageField(name, true)
	}
	if name, ok := g.addMedia(card, card.AudioFile); ok {
		audio = formatAudioField(name, true)
	}

	return []string{
		card.Word,
		card.Phonetic,
		card.PartOfSpeech,
		english,
		card.DefinitionZH,
		exampleField(card),
		image,
		audio,
	}
}

// addMedia registers a media file; missing files are left out of the package
func (g *APKGGenerator) addMedia(card Card, path string) (string, bool) {
	if path == "" || !fileExists(path) {
		return "", false
	}
	name := mediaName(card, path)
	for _, m := range g.media {
		if m.name == name {
			return name, true
		}
	}
	g.media = append(g.media, mediaEntry{name: name, path: path})
	return name, true
}

// createDatabase creates the Anki SQLite database
func (g *APKGGenerator) createDatabase(dbPath string, fields [][]string) error {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	if err := g.insertCollection(db); err != nil {
		return fmt.Errorf("failed to insert collection: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	if err := g.insertNotesAndCards(tx, fields); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to insert notes and cards: %w", err)
	}
	return tx.Commit()
}

// deckConfig returns the JSON object of one deck
func deckConfig(id int64, name, desc string, mod int64) map[string]any {
	// The arrays are [day, count] of today's stats
	return map[string]any{
		"id":               id,
		"name":             name,
		"mod":              mod,
		"desc":             desc,
		"collapsed":        false,
		"dyn":              0,
		"conf":             1,
		"usn":              0,
		"newToday":         []int{0, 0},
		"revToday":         []int{0, 0},
		"lrnToday":         []int{0, 0},
		"timeToday":        []int{0, 0},
		"browserCollapsed": false,
		"extendNew":        10,
		"extendRev":        50,
	}
}

// insertCollection inserts the collection metadata
func (g *APKGGenerator) insertCollection(db *sql.DB) error {
	now := g.now.Unix()

	deckKey := strconv.FormatInt(g.deckID, 10)
	modelKey := strconv.FormatInt(g.modelID, 10)

	decks := map[string]any{
		"1":     deckConfig(1, "Default", "", now),
		deckKey: deckConfig(g.deckID, g.deckName, deckDesc, now),
	}
	models := map[string]any{modelKey: g.noteType()}
	conf := map[string]any{
		"nextPos":       1,
		"estTimes":      true,
		"activeDecks":   []int64{1},
		"sortType":      "noteFld",
		"sortBackwards": false,
		"addToCur":      true,
		"curDeck":       1,
		"newSpread":     0,
		"dueCounts":     true,
		"collapseTime":  1200,
		"timeLim":       0,
		"schedVer":      1,
		"curModel":      modelKey,
		"dayLearnFirst": false,
	}
	dconf := map[string]any{
		"1": map[string]any{
			"id":   1,
			"name": "Default",
			"dyn":  0,
			"new": map[string]any{
				"delays":        []int{1, 10},
				"ints":          []int{1, 4, 7},
				"initialFactor": 2500,
				"perDay":        20,
				"order":         1,
				"bury":          true,
				"separate":      true,
			},
			"lapse": map[string]any{
				"delays":      []int{10},
				"mult":        0,
				"minInt":      1,
				"leechFails":  8,
				"leechAction": 0,
			},
			"rev": map[string]any{
				"perDay":   100,
				"ease4":    1.3,
				"fuzz":     0.05,
				"maxIvl":   36500,
				"ivlFct":   1,
				"bury":     true,
				"minSpace": 1,
			},
			"timer":    0,
			"maxTaken": 60,
			"usn":      0,
			"mod":      now,
			"autoplay": true,
			"replayq":  true,
		},
	}

	var encoded [4]string
	for i, v := range []any{conf, models, decks, dconf} {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		encoded[i] = string(data)
	}

	_, err := db.Exec(`INSERT INTO col VALUES (1, ?, ?, ?, 11, 0, 0, 0, ?, ?, ?, ?, '{}')`,
		now,      // crt
		now*1000, // mod
		now*1000, // scm
		encoded[0], encoded[1], encoded[2], encoded[3],
	)
	return err
}

// noteType returns the note type (model) definition
func (g *APKGGenerator) noteType() map[string]any {
	flds := make([]map[string]any, len(fieldDefs))
	for i, f := range fieldDefs {
		flds[i] = map[string]any{
			"name":   f.name,
			"ord":    i,
			"sticky": false,
			"rtl":    false,
			"font":   "Arial",
			"size":   f.size,
			"media":  []string{},
		}
	}

	return map[string]any{
		"id":    g.modelID,
		"name":  noteTypeName,
		"type":  0,
		"mod":   g.now.Unix(),
		"usn":   -1,
		"sortf": 0,
		"did":   g.deckID,
		// Forward needs Word (field 0), Reverse needs Chinese (field 4)
		"req":  [][]any{{0, "all", []int{0}}, {1, "all", []int{4}}},
		"vers": []int{},
		"tags": []string{},
		"latexPre": `\documentclass[12pt]{article}
\special{papersize=3in,5in}
\usepackage[utf8]{inputenc}
\usepackage{amssymb,amsmath}
\pagestyle{empty}
\setlength{\parindent}{0in}
\begin{document}`,
		"latexPost": `\end{document}`,
		"flds":      flds,
		"tmpls": []map[string]any{
			{"name": "Forward", "ord": 0, "qfmt": forwardFront, "afmt": forwardBack, "did": nil, "bqfmt": "", "bafmt": ""},
			{"name": "Reverse", "ord": 1, "qfmt": reverseFront, "afmt": reverseBack, "did": nil, "bqfmt": "", "bafmt": ""},
		},
		"css": cardCSS,
	}
}

const forwardFront = `<div class="front">
<div class="word">{{Word}}</div>
{{#Phonetic}}<div class="phonetic">{{Phonetic}}</div>{{/Phonetic}}
{{#Audio}}<div class="audio">{{Audio}}</div>{{/Audio}}
</div>`

const forwardBack = `{{FrontSide}}

<hr id="answer">

<div class="back">
{{#PartOfSpeech}}<div class="pos">{{PartOfSpeech}}</div>{{/PartOfSpeech}}
<div class="english">{{English}}</div>
{{#Chinese}}<div class="chinese">{{Chinese}}</div>{{/Chinese}}
{{#Image}}<div class="image-container">{{Image}}</div>{{/Image}}
{{#Example}}<div class="example">{{Example}}</div>{{/Example}}
</div>`

const reverseFront = `<div class="front">
<div class="chinese">{{Chinese}}</div>
{{#Image}}<div class="image-container">{{Image}}</div>{{/Image}}
</div>`

const reverseBack = `{{FrontSide}}

<hr id="answer">

<div class="back">
<div class="word">{{Word}}</div>
{{#Phonetic}}<div class="phonetic">{{Phonetic}}</div>{{/Phonetic}}
<div class="english">{{English}}</div>
{{#Audio}}<div class="audio">{{Audio}}</div>{{/Audio}}
{{#Example}}<div class="example">{{Example}}</div>{{/Example}}
</div>`

const cardCSS = `.card {
  font-family: Arial, "Noto Sans CJK SC", sans-serif;
  font-size: 20px;
  text-align: center;
  color: #333;
  background-color: white;
}

.front, .back {
  padding: 20px;
}

.word {
  font-size: 32px;
  font-weight: bold;
  color: #2c3e50;
  margin: 20px 0 8px;
}

.phonetic, .pos {
  font-size: 16px;
  color: #7f8c8d;
}

.chinese {
  font-size: 26px;
  color: #c0392b;
  margin: 16px 0;
}

.image-container img {
  max-width: 100%;
  height: auto;
  border-radius: 8px;
}

.example {
  font-size: 16px;
  font-style: italic;
  color: #555;
  margin-top: 20px;
}

hr#answer {
  margin: 30px 0;
  border: 0;
  border-top: 1px solid #ecf0f1;
}`

// insertNotesAndCards inserts one note and two cards per card
func (g *APKGGenerator) insertNotesAndCards(tx *sql.Tx, fields [][]string) error {
	mod := g.now.Unix()
	base := g.now.UnixMilli()

	for i, card := range g.cards {
		// Leave room for the two cards of each note
		noteID := base + int64(i*3)

		_, err := tx.Exec(`INSERT INTO notes VALUES (?, ?, ?, ?, -1, '', ?, ?, ?, 0, '')`,
			noteID,
			noteGUID(card),
			g.modelID,
			mod,
			strings.Join(fields[i], fieldSep),
			card.Word, // sort field
			fieldChecksum(card.Word),
		)
		if err != nil {
			return fmt.Errorf("failed to insert note for %q: %w", card.Word, err)
		}

		for ord := 0; ord < 2; ord++ {
			cardID := noteID + int64(ord) + 1
			// New cards: type, queue, ivl and friends are zero, due is the position
			_, err := tx.Exec(`INSERT INTO cards VALUES (?, ?, ?, ?, ?, -1, 0, 0, ?, 0, 0, 0, 0, 0, 0, 0, 0, '')`,
				cardID, noteID, g.deckID, ord, mod, int64(i*2+ord+1))
			if err != nil {
				return fmt.Errorf("failed to insert card %d for %q: %w", ord, card.Word, err)
			}
		}
	}
	return nil
}

// noteGUID is stable per saved word so re-imports update existing notes
func noteGUID(card Card) string {
	key := card.ID
	if key == "" {
		key = strings.ToLower(card.Word)
	}
	return "lx_" + key
}

// fieldChecksum is Anki's csum: the first 8 hex digits of the SHA1 of the sort field
func fieldChecksum(field string) int64 {
	sum := sha1.Sum([]byte(field))
	return int64(binary.BigEndian.Uint32(sum[:4]))
}

// writePackage zips the collection, the numbered media files and the media mapping
func (g *APKGGenerator) writePackage(outputPath, dbPath string) error {
	zipFile, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer zipFile.Close()

	archive := zip.NewWriter(zipFile)

	if err := addZipFile(archive, "collection.anki2", dbPath); err != nil {
		return err
	}

	mapping := make(map[string]string, len(g.media))
	for i, m := range g.media {
		num := strconv.Itoa(i)
		if err := addZipFile(archive, num, m.path); err != nil {
			return fmt.Errorf("failed to add media file %s: %w", m.path, err)
		}
		mapping[num] = m.name
	}

	data, err := json.Marshal(mapping)
	if err != nil {
		return err
	}
	w, err := archive.Create("media")
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}

	return archive.Close()
}

func addZipFile(archive *zip.Writer, name, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	w, err := archive.Create(name)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, src)
	return err
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
