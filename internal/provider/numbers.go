package provider

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"go.uber.org/zap"

	"github.com/ambientworks/companiond/internal/domain"
)

// numbersContextScript walks the frontmost Numbers document down to its
// first table and reports document, sheet, table and dimensions.
const numbersContextScript = `
tell application "Numbers"
	if not (exists document 1) then return "No document open"
	tell document 1
		set docName to name
		tell active sheet
			set sheetName to name
			try
				tell first table
					set tableName to name
					set rowCount to row count
					set colCount to column count
					return "Document: " & docName & ", Sheet: " & sheetName & ", Table: " & tableName & ", Rows: " & rowCount & ", Columns: " & colCount
				end tell
			on error
				return "Document: " & docName & ", Sheet: " & sheetName & " (No table found)"
			end try
		end tell
	end tell
end tell
`

// NumbersProvider extracts context from Apple Numbers via AppleScript.
type NumbersProvider struct {
	logger *zap.Logger
}

// NewNumbersProvider creates the Apple Numbers context provider.
func NewNumbersProvider(logger *zap.Logger) *NumbersProvider {
	return &NumbersProvider{logger: logger}
}

func (p *NumbersProvider) Name() string {
	return "Numbers"
}

func (p *NumbersProvider) Match(appName string) bool {
	return appName == "Numbers"
}

// GetContext runs the AppleScript probe. Failures are folded into a
// descriptive string so a degraded notification still goes out.
func (p *NumbersProvider) GetContext(ctx context.Context) string {
	if runtime.GOOS != "darwin" {
		return "Numbers context is unavailable on this platform"
	}

	out, err := exec.CommandContext(ctx, "osascript", "-e", numbersContextScript).Output()
	if err != nil {
		p.logger.Warn("numbers context probe failed", zap.Error(err))
		return fmt.Sprintf("Error getting context: %v", err)
	}
	return strings.TrimSpace(string(out))
}

var _ domain.ContextProvider = (*NumbersProvider)(nil)
