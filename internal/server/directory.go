package server

import (
	"fmt"
	"html"
	"math"
	"os"
	"strings"

	"github.com/vitaliisemenov/gatehouse/internal/config"
)

// directoryTemplate renders the autoindex page. The grid column layout
// varies with which optional columns are enabled.
const directoryTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Index of {title}</title>
    <style>
        body {
            font-family: "Segoe UI", Segoe, Tahoma, Arial, Verdana, sans-serif;
            padding: 0 16px 0;
            margin: 0;
        }
        h1 {
            font-weight: normal;
            word-wrap: break-word;
        }
        main {
            display: grid;
            grid-template-columns: {columns};
        }
        a:first-child {
            grid-column: {column};
        }
        a, time, span {
            height: 28px;
            line-height: 28px;
            text-overflow: ellipsis;
            overflow: hidden;
            white-space: nowrap;
        }
        a {
            color: #2a7ae2;
            text-decoration: none;
        }
        a:hover {
            text-decoration: underline;
        }
        a:active, a:visited {
            color: #1756a9;
        }
        time, span {
            padding-left: 16px;
        }
        @media (prefers-color-scheme: dark) {
            body {
                background-color: #1e2022;
                color: #d5d5d5;
            }
        }
    </style>
</head>
<body>
    <h1>Index of {title}</h1>
    <main>
        <a href="../">../</a>
{content}    </main>
</body>
</html>
`

// renderDirectory reads dir and produces the autoindex HTML. Dotfiles
// are excluded; the parent row is always first.
func renderDirectory(dir, title string, d config.Directory) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var content strings.Builder
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}

		escaped := html.EscapeString(name)
		if entry.IsDir() {
			fmt.Fprintf(&content, "        <a href=%q>%s/</a>", escaped+"/", escaped)
		} else {
			fmt.Fprintf(&content, "        <a href=%q>%s</a>", escaped, escaped)
		}

		if d.TimeLayout != "" {
			fmt.Fprintf(&content, "<time>%s</time>", info.ModTime().Format(d.TimeLayout))
		}
		if d.Size {
			if entry.IsDir() {
				content.WriteString("<span></span>")
			} else {
				fmt.Fprintf(&content, "<span>%s</span>", bytesToSize(uint64(info.Size())))
			}
		}
		content.WriteString("\n")
	}

	var columns, column string
	switch {
	case d.TimeLayout == "" && !d.Size:
		columns, column = "auto", "1 / 2"
	case d.TimeLayout != "" && d.Size:
		columns, column = "auto auto 1fr", "1 / 4"
	default:
		columns, column = "auto 1fr", "1 / 3"
	}

	page := strings.Replace(directoryTemplate, "{title}", html.EscapeString(title), 2)
	page = strings.Replace(page, "{columns}", columns, 1)
	page = strings.Replace(page, "{column}", column, 1)
	page = strings.Replace(page, "{content}", content.String(), 1)
	return page, nil
}

var sizeUnits = [...]string{"B", "KB", "MB", "GB", "TB", "PB", "EB"}

// bytesToSize formats a byte count in binary units, with two decimals
// above the byte range.
func bytesToSize(n uint64) string {
	if n < 1024 {
		return fmt.Sprintf("%d B", n)
	}
	b := float64(n)
	i := int(math.Log(b) / math.Log(1024))
	if i >= len(sizeUnits) {
		i = len(sizeUnits) - 1
	}
	return fmt.Sprintf("%.2f %s", b/math.Pow(1024, float64(i)), sizeUnits[i])
}
