package builtin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"github.com/localcmd/assistant/internal/tool"
)

const (
	readURLTimeout      = 15 * time.Second
	readURLMaxBody      = 2 << 20 // 2MB
	readURLMaxRunes     = 8000    // truncate to avoid blowing the LLM context
	readURLUserAgent    = "localcmd-assistant/0.1 (read_url)"
	readURLMaxRedirects = 5
)

// privateNetworks lists IPv4/IPv6 ranges considered internal: RFC-1918
// private ranges, loopback, link-local, ULA, CGNAT, and other blocks used
// for SSRF bypasses. Populated once at package load.
var privateNetworks []*net.IPNet

func init() {
	for _, cidr := range []string{
		"0.0.0.0/8", "10.0.0.0/8", "100.64.0.0/10", "127.0.0.0/8",
		"169.254.0.0/16", "172.16.0.0/12", "192.168.0.0/16", "198.18.0.0/15",
		"::1/128", "fc00::/7", "fe80::/10",
	} {
		if _, network, err := net.ParseCIDR(cidr); err == nil {
			privateNetworks = append(privateNetworks, network)
		}
	}
}

// blockInternalHost resolves host and returns an error if any resolved IP
// falls inside a private/internal range.
func blockInternalHost(host string) error {
	ips, err := net.LookupHost(host)
	if err != nil {
		ips = []string{host}
	}
	for _, ipStr := range ips {
		ip := net.ParseIP(ipStr)
		if ip == nil {
			continue
		}
		if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
			return fmt.Errorf("refusing to fetch internal address %s", host)
		}
		for _, network := range privateNetworks {
			if network.Contains(ip) {
				return fmt.Errorf("refusing to fetch internal address %s", host)
			}
		}
	}
	return nil
}

// ReadURLTool fetches a web page over GET and extracts its readable title,
// description, and body text. Unlike a generic HTTP client, it fixes the
// method to GET, allows no caller-supplied headers or body, and — unless
// explicitly relaxed — refuses to connect to internal/private addresses,
// closing off the most common SSRF vector for a tool an LLM drives.
type ReadURLTool struct {
	allowInternal bool
	client        *http.Client
}

// NewReadURLTool creates the tool. allowInternal lifts the private-address
// block, typically from a TOOL_READ_URL_ALLOW_INTERNAL env var read by the
// composition root.
func NewReadURLTool(allowInternal bool) *ReadURLTool {
	baseDialer := &net.Dialer{Timeout: readURLTimeout}
	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, _, err := net.SplitHostPort(addr)
			if err != nil {
				host = addr
			}
			if !allowInternal {
				if err := blockInternalHost(host); err != nil {
					return nil, err
				}
			}
			return baseDialer.DialContext(ctx, network, addr)
		},
	}
	client := &http.Client{
		Timeout:   readURLTimeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= readURLMaxRedirects {
				return fmt.Errorf("too many redirects (max %d)", readURLMaxRedirects)
			}
			if !allowInternal {
				if err := blockInternalHost(req.URL.Hostname()); err != nil {
					return err
				}
			}
			return nil
		},
	}
	return &ReadURLTool{allowInternal: allowInternal, client: client}
}

func (t *ReadURLTool) Name() string { return "read_url" }
func (t *ReadURLTool) Description() string {
	return "Fetch a web page by URL and extract its title, description, and main text content. GET only, no custom headers or body."
}

func (t *ReadURLTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "url", Type: "string", Description: "page URL, must start with http:// or https://", Required: true},
	)
}

func (t *ReadURLTool) Init(_ context.Context) error { return nil }
func (t *ReadURLTool) Close() error                 { return nil }

type readURLArgs struct {
	URL string `json:"url"`
}

func (t *ReadURLTool) Execute(ctx context.Context, args json.RawMessage, _ *tool.ExecutorContext) (tool.ToolResult, error) {
	var a readURLArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return tool.Err(tool.CodeValidationError, fmt.Sprintf("invalid arguments: %v", err)), nil
		}
	}

	url := strings.TrimSpace(a.URL)
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return tool.Err(tool.CodeValidationError, "url must start with http:// or https://"), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return tool.Err(tool.CodeValidationError, fmt.Sprintf("could not build request: %v", err)), nil
	}
	req.Header.Set("User-Agent", readURLUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := t.client.Do(req)
	if err != nil {
		return tool.Err(tool.CodeExecError, fmt.Sprintf("request failed: %v", err)), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return tool.Err(tool.CodeExecError, fmt.Sprintf("HTTP %d: %s", resp.StatusCode, resp.Status)), nil
	}

	limitedReader := io.LimitReader(resp.Body, readURLMaxBody)
	contentType := resp.Header.Get("Content-Type")
	ctLower := strings.ToLower(contentType)

	if strings.Contains(ctLower, "application/json") {
		raw, _ := io.ReadAll(limitedReader)
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, raw, "", "  "); err == nil {
			return tool.Ok(map[string]any{"output": truncateContent(pretty.String())}), nil
		}
		return tool.Ok(map[string]any{"output": truncateContent(string(raw))}), nil
	}
	if strings.Contains(ctLower, "text/plain") {
		raw, _ := io.ReadAll(limitedReader)
		return tool.Ok(map[string]any{"output": truncateContent(string(raw))}), nil
	}
	if !strings.Contains(ctLower, "text/html") && !strings.Contains(ctLower, "application/xhtml") {
		return tool.Err(tool.CodeValidationError, fmt.Sprintf("unsupported content type: %s", contentType)), nil
	}

	// charset.NewReader sniffs, in order: BOM, <meta charset>, Content-Type
	// charset param, falling back to UTF-8.
	utf8Reader, err := charset.NewReader(limitedReader, contentType)
	if err != nil {
		utf8Reader = limitedReader
	}

	title, description, content, err := extractContent(utf8Reader)
	if err != nil {
		return tool.Err(tool.CodeExecError, fmt.Sprintf("could not parse page: %v", err)), nil
	}

	var sb strings.Builder
	if title != "" {
		sb.WriteString(fmt.Sprintf("Title: %s\n\n", title))
	}
	if description != "" {
		sb.WriteString(fmt.Sprintf("Description: %s\n\n", description))
	}
	if content == "" {
		sb.WriteString("(no readable body content extracted)")
	} else {
		sb.WriteString(truncateContent(content))
	}

	return tool.Ok(map[string]any{"output": sb.String(), "title": title}), nil
}

// truncateContent caps content at readURLMaxRunes runes.
func truncateContent(content string) string {
	runes := []rune(content)
	if len(runes) > readURLMaxRunes {
		return string(runes[:readURLMaxRunes]) + "\n\n...(truncated)"
	}
	return content
}

// extractContent parses HTML and extracts the <title>, <meta description>,
// and body text, skipping non-content elements like <script>, <style>,
// <nav>, <footer>, <form>. <header> is only skipped at page level — if it
// appears nested inside <article> it's treated as content.
func extractContent(r io.Reader) (title string, description string, content string, err error) {
	tokenizer := html.NewTokenizer(r)

	var sb strings.Builder
	var inTitle, inSkip bool
	skipDepth := 0
	articleDepth := 0

	skipTags := map[string]bool{
		"script": true, "style": true, "noscript": true,
		"nav": true, "footer": true, "form": true,
		"aside": true, "iframe": true, "svg": true,
	}

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			parseErr := tokenizer.Err()
			result := collapseBlankLines(strings.TrimSpace(sb.String()))
			if parseErr == io.EOF {
				return title, description, result, nil
			}
			return title, description, result, parseErr

		case html.StartTagToken, html.SelfClosingTagToken:
			tn, hasAttr := tokenizer.TagName()
			tagName := string(tn)

			if tagName == "meta" && hasAttr && description == "" {
				var nameVal, propertyVal, contentVal string
				for {
					key, val, more := tokenizer.TagAttr()
					switch string(key) {
					case "name":
						nameVal = strings.ToLower(string(val))
					case "property":
						propertyVal = strings.ToLower(string(val))
					case "content":
						contentVal = string(val)
					}
					if !more {
						break
					}
				}
				if nameVal == "description" && contentVal != "" {
					description = contentVal
				} else if propertyVal == "og:description" && contentVal != "" {
					description = contentVal
				}
				continue
			}

			if tt == html.SelfClosingTagToken {
				continue
			}

			if tagName == "title" {
				inTitle = true
			}
			if tagName == "article" {
				articleDepth++
			}
			if tagName == "header" && articleDepth == 0 {
				inSkip = true
				skipDepth++
			}
			if skipTags[tagName] {
				inSkip = true
				skipDepth++
			}
			if !inSkip && isBlockElement(tagName) && sb.Len() > 0 {
				s := sb.String()
				if s[len(s)-1] != '\n' {
					sb.WriteString("\n")
				}
			}
			if !inSkip && (tagName == "td" || tagName == "th") && sb.Len() > 0 {
				s := sb.String()
				if s[len(s)-1] != '\n' && s[len(s)-1] != '|' {
					sb.WriteString(" | ")
				}
			}

		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			tagName := string(tn)

			if tagName == "title" {
				inTitle = false
			}
			if tagName == "article" && articleDepth > 0 {
				articleDepth--
			}
			isPageHeader := tagName == "header" && articleDepth == 0
			if (skipTags[tagName] || isPageHeader) && skipDepth > 0 {
				skipDepth--
				if skipDepth == 0 {
					inSkip = false
				}
			}

		case html.TextToken:
			text := strings.TrimSpace(string(tokenizer.Text()))
			if text == "" {
				continue
			}
			if inTitle && title == "" {
				title = text
				continue
			}
			if !inSkip {
				sb.WriteString(text)
				sb.WriteString(" ")
			}
		}
	}
}

// collapseBlankLines reduces consecutive blank lines down to at most one.
func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	var result []string
	blankCount := 0
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			blankCount++
			if blankCount <= 1 {
				result = append(result, line)
			}
		} else {
			blankCount = 0
			result = append(result, line)
		}
	}
	return strings.Join(result, "\n")
}

// isBlockElement returns true for HTML block-level elements that should
// have line breaks between them.
func isBlockElement(tag string) bool {
	switch tag {
	case "p", "div", "h1", "h2", "h3", "h4", "h5", "h6",
		"li", "tr", "br", "hr", "blockquote", "pre",
		"article", "section", "main",
		"table", "thead", "tbody", "tfoot":
		return true
	}
	return false
}
