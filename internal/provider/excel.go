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

// excelContextScript attaches to the running Excel instance via COM and
// reports workbook, active sheet and the current selection. Large
// selections skip the value dump to keep the context short.
const excelContextScript = `
try {
    $excel = [Runtime.InteropServices.Marshal]::GetActiveObject("Excel.Application")
} catch {
    Write-Output "Excel is not running or not accessible."
    exit
}
$wb = $excel.ActiveWorkbook
if (-not $wb) { Write-Output "No workbook open"; exit }
$sheet = $excel.ActiveSheet
$sel = $excel.Selection
$context = "Workbook: $($wb.Name), Sheet: $($sheet.Name)"
try {
    $context += ", Selection: $($sel.Address())"
    if ($sel.Count -le 10 -and $sel.Value2) {
        $context += ", Value: $($sel.Value2)"
    }
} catch {}
Write-Output $context
`

// ExcelProvider extracts context from Microsoft Excel via PowerShell COM.
type ExcelProvider struct {
	logger *zap.Logger
}

// NewExcelProvider creates the Excel context provider.
func NewExcelProvider(logger *zap.Logger) *ExcelProvider {
	return &ExcelProvider{logger: logger}
}

func (p *ExcelProvider) Name() string {
	return "Excel"
}

// Match accepts the bare process name ("EXCEL" on Windows, case varies).
func (p *ExcelProvider) Match(appName string) bool {
	return strings.EqualFold(appName, "excel")
}

func (p *ExcelProvider) GetContext(ctx context.Context) string {
	if runtime.GOOS != "windows" {
		return "Excel context is unavailable on this platform"
	}

	out, err := exec.CommandContext(ctx, "powershell", "-NoProfile", "-Command", excelContextScript).Output()
	if err != nil {
		p.logger.Warn("excel context probe failed", zap.Error(err))
		return fmt.Sprintf("Error getting context: %v", err)
	}
	return strings.TrimSpace(string(out))
}

var _ domain.ContextProvider = (*ExcelProvider)(nil)
