package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyTrigger    = "trigger"
	KeySource     = "source"
	KeyOutput     = "output"
	KeyPath       = "path"
	KeyKind       = "kind"
	KeyPages      = "pages"
	KeyAssets     = "assets"
	KeyDurationMS = "duration_ms"
	KeyRevision   = "revision"
	KeyOp         = "op"
	KeyMethod     = "method"
	KeyStatus     = "status"
	KeyRemoteAddr = "remote_addr"
	KeyUserAgent  = "user_agent"
	KeyAddress    = "address"
	KeyError      = "error"
)

func BuildID(id string) slog.Attr        { return slog.String(KeyBuildID, id) }
func Trigger(t string) slog.Attr         { return slog.String(KeyTrigger, t) }
func Source(dir string) slog.Attr        { return slog.String(KeySource, dir) }
func Output(dir string) slog.Attr        { return slog.String(KeyOutput, dir) }
func Path(p string) slog.Attr            { return slog.String(KeyPath, p) }
func Kind(k string) slog.Attr            { return slog.String(KeyKind, k) }
func Pages(n int) slog.Attr              { return slog.Int(KeyPages, n) }
func Assets(n int) slog.Attr             { return slog.Int(KeyAssets, n) }
func Revision(r string) slog.Attr        { return slog.String(KeyRevision, r) }
func Op(op string) slog.Attr             { return slog.String(KeyOp, op) }
func Method(m string) slog.Attr          { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr          { return slog.Int(KeyStatus, code) }
func RemoteAddr(addr string) slog.Attr   { return slog.String(KeyRemoteAddr, addr) }
func UserAgent(ua string) slog.Attr      { return slog.String(KeyUserAgent, ua) }
func Address(addr string) slog.Attr      { return slog.String(KeyAddress, addr) }
func Duration(d time.Duration) slog.Attr { return slog.Float64(KeyDurationMS, float64(d.Microseconds())/1000) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
