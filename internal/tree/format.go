package tree

import (
	"fmt"
	"io"
	"strings"
)

// Pformat renders the tree as an indented outline for debugging.
func (t *Tree) Pformat() string {
	var sb strings.Builder
	sb.WriteString("<root>\n")
	for _, child := range t.root.children {
		formatItem(&sb, child, 1)
	}
	return sb.String()
}

// Pprint writes Pformat to w.
func (t *Tree) Pprint(w io.Writer) {
	_, _ = io.WriteString(w, t.Pformat())
}

func formatItem(sb *strings.Builder, item *Item, depth int) {
	indent := strings.Repeat("  ", depth)
	marks := ""
	if item.persistent {
		marks = " (persistent)"
	}
	fmt.Fprintf(sb, "%s%s [%s] %s%s\n", indent, checkbox(item.active), item.typeSpec, item.name, marks)
	for _, task := range item.tasks {
		fmt.Fprintf(sb, "%s  * %s %s\n", indent, checkbox(task.active && task.enabled), task.Name())
	}
	for _, child := range item.children {
		formatItem(sb, child, depth+1)
	}
}

func checkbox(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}
