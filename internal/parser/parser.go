package parser

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	gmtext "github.com/yuin/goldmark/text"

	"morocco-rag/internal/models"
)

// Parser turns a supplementary file (guide, brochure, spreadsheet) into a Document
type Parser interface {
	ParseFile(filePath string) (models.Document, error)
}

type FileParser struct{}

var (
	xmlTagRe       = regexp.MustCompile(`<[^>]+>`)
	blankLinesRe   = regexp.MustCompile(`\n{3,}`)
	slideNumberRe  = regexp.MustCompile(`slide(\d+)\.xml$`)
	docxParagraph  = "</w:p>"
	pptxTextOpen   = "<a:t>"
	pptxTextClose  = "</a:t>"
	supportedTypes = []string{".pdf", ".docx", ".pptx", ".xlsx", ".txt", ".md"}
)

// Supported reports whether the file extension can be ingested
func Supported(filePath string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))
	for _, s := range supportedTypes {
		if s == ext {
			return true
		}
	}
	return false
}

func (FileParser) ParseFile(filePath string) (models.Document, error) {
	var (
		content string
		err     error
	)
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".pdf":
		content, err = parsePDF(filePath)
	case ".docx":
		content, err = parseDOCX(filePath)
	case ".pptx":
		content, err = parsePPTX(filePath)
	case ".xlsx":
		content, err = parseXLSX(filePath)
	case ".md":
		content, err = parseMarkdown(filePath)
	case ".txt":
		content, err = parseText(filePath)
	default:
		return models.Document{}, fmt.Errorf("unsupported file format: %s", ext)
	}
	if err != nil {
		return models.Document{}, fmt.Errorf("failed to parse %s: %w", filePath, err)
	}
	return models.Document{
		Content: normalize(content),
		Metadata: map[string]string{
			models.MetaSource:              filepath.Base(filePath),
			models.MetaCategory:            "",
			models.MetaOriginalInstruction: "",
		},
	}, nil
}

// ParseFiles expands glob patterns and parses every supported match
func ParseFiles(p Parser, patterns []string) ([]models.Document, error) {
	var docs []models.Document
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid source pattern %q: %w", pattern, err)
		}
		if matches == nil {
			matches = []string{pattern}
		}
		for _, m := range matches {
			if !Supported(m) {
				log.Warn().Str("file", m).Msg("Skipping unsupported source file")
				continue
			}
			doc, err := p.ParseFile(m)
			if err != nil {
				return nil, err
			}
			if doc.Content == "" {
				log.Warn().Str("file", m).Msg("Source file has no text")
				continue
			}
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func parsePDF(filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return "", err
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", err
		}
		text.WriteString(pageText)
		text.WriteString("\n\n")
	}
	return text.String(), nil
}

func parseDOCX(filePath string) (string, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return "", err
	}
	defer r.Close()

	body := r.Editable().GetContent()
	body = strings.ReplaceAll(body, docxParagraph, "\n")
	return xmlTagRe.ReplaceAllString(body, ""), nil
}

func parsePPTX(filePath string) (string, error) {
	f, err := zip.OpenReader(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	type slide struct {
		num  int
		text string
	}
	var slides []slide
	for _, file := range f.File {
		m := slideNumberRe.FindStringSubmatch(file.Name)
		if !strings.HasPrefix(file.Name, "ppt/slides/slide") || m == nil {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", err
		}
		var num int
		fmt.Sscanf(m[1], "%d", &num)
		slides = append(slides, slide{num: num, text: extractTextFromXML(string(data))})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	parts := make([]string, 0, len(slides))
	for _, s := range slides {
		if strings.TrimSpace(s.text) != "" {
			parts = append(parts, strings.TrimSpace(s.text))
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

func parseXLSX(filePath string) (string, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var text strings.Builder
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			return "", err
		}
		text.WriteString(fmt.Sprintf("Sheet: %s\n", sheetName))
		for _, row := range rows {
			text.WriteString(strings.Join(row, "\t"))
			text.WriteString("\n")
		}
		text.WriteString("\n")
	}
	return text.String(), nil
}

func parseText(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// parseMarkdown keeps the readable text of a markdown file and drops the markup
func parseMarkdown(filePath string) (string, error) {
	src, err := os.ReadFile(filePath)
	if err != nil {
		return "", err
	}
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	doc := md.Parser().Parse(gmtext.NewReader(src))

	var text strings.Builder
	err = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock {
				text.WriteString("\n\n")
			}
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Text:
			text.Write(node.Segment.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				text.WriteString("\n")
			}
		case *ast.String:
			text.Write(node.Value)
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				text.Write(seg.Value(src))
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", err
	}
	return text.String(), nil
}

func extractTextFromXML(xmlContent string) string {
	var text strings.Builder
	parts := strings.Split(xmlContent, pptxTextOpen)
	for i, part := range parts {
		if i == 0 {
			continue
		}
		endIdx := strings.Index(part, pptxTextClose)
		if endIdx >= 0 {
			text.WriteString(part[:endIdx] + " ")
		}
	}
	return text.String()
}

func normalize(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = blankLinesRe.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
