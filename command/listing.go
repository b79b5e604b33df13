package command

import (
	"strconv"
	"strings"
	"time"

	"github.com/pterodactyl/hangar/filesystem"
)

const listingHeader = "File | Size | Modified Date | Type"

// formatListing renders directory entries as rows of name, size in bytes, last
// modified time and mimetype.
func formatListing(entries []filesystem.Stat) string {
	var b strings.Builder
	b.WriteString(listingHeader)
	for _, st := range entries {
		b.WriteString("\n-----------------------\n")
		b.WriteString(strings.Join([]string{
			st.Name(),
			strconv.FormatInt(st.Usage, 10),
			st.ModTime().Format(time.ANSIC),
			st.Mimetype,
		}, " | "))
	}
	return b.String()
}
