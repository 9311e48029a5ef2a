//go:build ao2debug

package tag

const debug = true
