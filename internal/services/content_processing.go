package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/headstart-dev/headstart-backend/internal/logger"
	"github.com/headstart-dev/headstart-backend/internal/types"
)

// ContentDraft is the normalized output of source-specific processing,
// before persistence and embedding.
type ContentDraft struct {
	Title           string
	Description     string
	ContentType     string
	Source          string
	SourceID        string
	URL             string
	DurationMinutes int
	Topics          []string
	Language        string
	Metadata        map[string]interface{}
	// EmbedText is what gets sent to the embedding provider.
	EmbedText string
}

// ContentProcessor turns external source references (YouTube URLs, arXiv
// IDs, uploaded files) into ContentDrafts.
type ContentProcessor interface {
	ProcessYouTube(ctx context.Context, url string) (*ContentDraft, error)
	ProcessArxiv(ctx context.Context, arxivID string) (*ContentDraft, error)
	ProcessUpload(ctx context.Context, path, filename string) (*ContentDraft, error)
	SupportedURL(url string) bool
}

type ContentProcessorConfig struct {
	YouTubeAPIKey string
	ArxivBaseURL  string
}

type contentProcessor struct {
	log        *logger.Logger
	cfg        ContentProcessorConfig
	httpClient *http.Client
}

func NewContentProcessor(baseLog *logger.Logger, cfg ContentProcessorConfig) ContentProcessor {
	if strings.TrimSpace(cfg.ArxivBaseURL) == "" {
		cfg.ArxivBaseURL = "http://export.arxiv.org/api/query"
	}
	svcLog := baseLog.With("service", "ContentProcessor")
	return &contentProcessor{
		log:        svcLog,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// -------------------- YouTube --------------------

var youtubeIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/)([^&\n?#]+)`),
	regexp.MustCompile(`youtube\.com/v/([^&\n?#]+)`),
}

// ExtractYouTubeID returns the video ID embedded in url, or "" when the
// URL is not a recognized YouTube form.
func ExtractYouTubeID(url string) string {
	for _, pattern := range youtubeIDPatterns {
		if m := pattern.FindStringSubmatch(url); len(m) == 2 {
			return m[1]
		}
	}
	return ""
}

var isoDurationPattern = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// parseISODuration converts a YouTube ISO-8601 duration (PT15M33S) to
// whole minutes, rounding any leftover seconds up.
func parseISODuration(s string) int {
	m := isoDurationPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0
	}
	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	seconds, _ := strconv.Atoi(m[3])
	total := hours*60 + minutes
	if seconds > 0 {
		total++
	}
	return total
}

func (p *contentProcessor) ProcessYouTube(ctx context.Context, url string) (*ContentDraft, error) {
	videoID := ExtractYouTubeID(url)
	if videoID == "" {
		return nil, fmt.Errorf("invalid YouTube URL %q", url)
	}
	if strings.TrimSpace(p.cfg.YouTubeAPIKey) == "" {
		return nil, fmt.Errorf("YouTube API key not configured")
	}

	svc, err := youtube.NewService(ctx,
		option.WithAPIKey(p.cfg.YouTubeAPIKey),
		option.WithHTTPClient(p.httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("youtube client: %w", err)
	}

	resp, err := svc.Videos.List([]string{"snippet", "contentDetails", "statistics"}).
		Id(videoID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("youtube api: %w", err)
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("video %s not found", videoID)
	}

	video := resp.Items[0]
	snippet := video.Snippet

	language := snippet.DefaultLanguage
	if language == "" {
		language = "en"
	}

	metadata := map[string]interface{}{
		"channel_title": snippet.ChannelTitle,
		"published_at":  snippet.PublishedAt,
		"tags":          snippet.Tags,
	}
	if video.Statistics != nil {
		metadata["view_count"] = video.Statistics.ViewCount
		metadata["like_count"] = video.Statistics.LikeCount
	}

	duration := 0
	if video.ContentDetails != nil {
		duration = parseISODuration(video.ContentDetails.Duration)
	}

	topics := extractTopics(strings.Join(snippet.Tags, " ") + " " + snippet.Description)

	return &ContentDraft{
		Title:           snippet.Title,
		Description:     snippet.Description,
		ContentType:     "video",
		Source:          types.ContentSourceYouTube,
		SourceID:        videoID,
		URL:             url,
		DurationMinutes: duration,
		Topics:          topics,
		Language:        language,
		Metadata:        metadata,
		EmbedText:       snippet.Title + " " + snippet.Description,
	}, nil
}

// -------------------- arXiv --------------------

type arxivFeed struct {
	XMLName xml.Name     `xml:"http://www.w3.org/2005/Atom feed"`
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	Title   string `xml:"title"`
	Summary string `xml:"summary"`
	Authors []struct {
		Name string `xml:"name"`
	} `xml:"author"`
	Categories []struct {
		Term string `xml:"term,attr"`
	} `xml:"category"`
	Links []struct {
		Href string `xml:"href,attr"`
		Type string `xml:"type,attr"`
	} `xml:"link"`
}

var arxivCategoryNames = map[string]string{
	"cs.AI":           "AI",
	"cs.LG":           "Machine Learning",
	"cs.CV":           "Computer Vision",
	"cs.NLP":          "Natural Language Processing",
	"cs.RO":           "Robotics",
	"cs.DB":           "Database",
	"cs.SE":           "Software Engineering",
	"cs.SY":           "Systems and Control",
	"cs.CR":           "Cybersecurity",
	"cs.DC":           "Distributed Computing",
	"cs.DS":           "Data Structures",
	"stat.ML":         "Machine Learning",
	"math.ST":         "Statistics",
	"physics.data-an": "Data Science",
}

const maxTopics = 10

// mapArxivCategories maps arXiv category codes to readable topics.
// Unknown codes are title-cased as-is; Research and Academic are always
// appended. Result is deduplicated and capped at maxTopics.
func mapArxivCategories(categories []string) []string {
	seen := map[string]bool{}
	var topics []string
	add := func(t string) {
		if t == "" || seen[t] {
			return
		}
		seen[t] = true
		topics = append(topics, t)
	}
	for _, category := range categories {
		if name, ok := arxivCategoryNames[category]; ok {
			add(name)
			continue
		}
		add(titleCase(strings.ReplaceAll(category, ".", " ")))
	}
	add("Research")
	add("Academic")
	if len(topics) > maxTopics {
		topics = topics[:maxTopics]
	}
	return topics
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// cleanArxivID strips a trailing version suffix (2301.12345v2 -> 2301.12345).
func cleanArxivID(id string) string {
	if idx := strings.LastIndex(id, "v"); idx > 0 {
		if _, err := strconv.Atoi(id[idx+1:]); err == nil {
			return id[:idx]
		}
	}
	return id
}

func (p *contentProcessor) ProcessArxiv(ctx context.Context, arxivID string) (*ContentDraft, error) {
	cleanID := cleanArxivID(strings.TrimSpace(arxivID))
	if cleanID == "" {
		return nil, fmt.Errorf("arxiv id required")
	}

	apiURL := fmt.Sprintf("%s?id_list=%s", p.cfg.ArxivBaseURL, cleanID)
	req, err := http.NewRequestWithContext(ctx, "GET", apiURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arxiv api: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("arxiv api: http %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var feed arxivFeed
	if err := xml.Unmarshal(raw, &feed); err != nil {
		return nil, fmt.Errorf("arxiv feed parse: %w", err)
	}
	if len(feed.Entries) == 0 {
		return nil, fmt.Errorf("paper %s not found", cleanID)
	}

	entry := feed.Entries[0]
	title := strings.TrimSpace(entry.Title)
	summary := strings.TrimSpace(entry.Summary)
	if title == "" {
		return nil, fmt.Errorf("paper %s not found", cleanID)
	}

	var authors []string
	for _, a := range entry.Authors {
		authors = append(authors, a.Name)
	}
	var categories []string
	for _, c := range entry.Categories {
		if c.Term != "" {
			categories = append(categories, c.Term)
		}
	}

	pdfURL := ""
	for _, link := range entry.Links {
		if link.Type == "application/pdf" {
			pdfURL = link.Href
			break
		}
	}
	url := pdfURL
	if url == "" {
		url = "https://arxiv.org/abs/" + cleanID
	}

	return &ContentDraft{
		Title:       title,
		Description: summary,
		ContentType: "paper",
		Source:      types.ContentSourceArxiv,
		SourceID:    cleanID,
		URL:         url,
		Topics:      mapArxivCategories(categories),
		Language:    "en",
		Metadata: map[string]interface{}{
			"authors":    authors,
			"categories": categories,
			"arxiv_id":   cleanID,
			"pdf_url":    pdfURL,
		},
		EmbedText: title + " " + summary,
	}, nil
}

// -------------------- Uploads --------------------

func (p *contentProcessor) ProcessUpload(ctx context.Context, path, filename string) (*ContentDraft, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))

	var content string
	var err error
	switch ext {
	case "txt", "md":
		content, err = readTextFile(path)
	case "pdf":
		content, err = extractPDFText(path)
		if err != nil {
			// Extraction failures degrade to a stub so the item is
			// still catalogued.
			p.log.Warn("PDF text extraction failed, using stub", "filename", filename, "error", err.Error())
			content = fmt.Sprintf("PDF document: %s. Text extraction unavailable.", filename)
			err = nil
		}
	default:
		return nil, fmt.Errorf("unsupported file type %q", ext)
	}
	if err != nil {
		return nil, err
	}

	title := titleFromFilename(filename, ext)
	description := extractDescription(content)
	topics := extractTopics(content)

	sum := sha256.Sum256([]byte(content))
	contentHash := hex.EncodeToString(sum[:])

	return &ContentDraft{
		Title:       title,
		Description: description,
		ContentType: "document",
		Source:      types.ContentSourceUpload,
		SourceID:    contentHash,
		URL:         path,
		Topics:      topics,
		Language:    "en",
		Metadata: map[string]interface{}{
			"filename":     filename,
			"file_type":    ext,
			"file_size":    len(content),
			"content_hash": contentHash,
		},
		EmbedText: content,
	}, nil
}

func (p *contentProcessor) SupportedURL(url string) bool {
	lower := strings.ToLower(url)
	return strings.Contains(lower, "youtube.com") ||
		strings.Contains(lower, "youtu.be") ||
		strings.Contains(lower, "arxiv.org")
}

func readTextFile(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	return string(raw), nil
}

func extractPDFText(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var sb strings.Builder
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", fmt.Errorf("no text content found in pdf")
	}
	return out, nil
}

func titleFromFilename(filename, ext string) string {
	name := strings.TrimSuffix(filename, "."+ext)
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "-", " ")
	return titleCase(name)
}

// extractDescription returns the first paragraph of content, capped at
// 200 characters.
func extractDescription(content string) string {
	description := content
	if paragraphs := strings.SplitN(content, "\n\n", 2); len(paragraphs) > 0 {
		description = strings.TrimSpace(paragraphs[0])
	}
	if len(description) > 200 {
		return description[:200] + "..."
	}
	return description
}

// topicKeywords drives keyword-based topic tagging for text content.
var topicKeywords = map[string][]string{
	"AI":                 {"artificial intelligence", "ai", "machine learning", "neural network"},
	"Machine Learning":   {"machine learning", "ml", "deep learning", "algorithm"},
	"Data Science":       {"data science", "data analysis", "statistics", "analytics"},
	"Web Development":    {"web development", "html", "css", "javascript", "react", "vue"},
	"Mobile Development": {"mobile development", "android", "ios", "react native", "flutter"},
	"DevOps":             {"devops", "docker", "kubernetes", "ci/cd", "deployment"},
	"Database":           {"database", "sql", "mongodb", "postgresql", "mysql"},
	"Programming":        {"programming", "coding", "software development", "python", "java"},
}

// extractTopics tags text by keyword matching. Falls back to "General"
// when nothing matches. Output order is deterministic.
func extractTopics(text string) []string {
	lower := strings.ToLower(text)
	var topics []string
	for topic, keywords := range topicKeywords {
		for _, keyword := range keywords {
			if strings.Contains(lower, keyword) {
				topics = append(topics, topic)
				break
			}
		}
	}
	if len(topics) == 0 {
		return []string{"General"}
	}
	sort.Strings(topics)
	if len(topics) > maxTopics {
		topics = topics[:maxTopics]
	}
	return topics
}
