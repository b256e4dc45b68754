package worker

import "path/filepath"

// thumbnailStoredName and thumbnailURLPath derive the stored filename and
// the server-relative URL the edge layer serves back to a browser, per the
// filesystem layout contract: UPLOAD_DIR/thumbnails/thumb_<uuid>.{jpg|png}.
func thumbnailStoredName(path string) string {
	return filepath.Base(path)
}

func thumbnailURLPath(path string) string {
	return "/uploads/thumbnails/" + filepath.Base(path)
}
