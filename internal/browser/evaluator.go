package browser

import (
	"errors"

	"devconsole/internal/inspect"
	"devconsole/internal/logging"

	"github.com/go-rod/rod/lib/proto"
)

// Eval evaluates src in the attached page in REPL mode, so top-level
// declarations persist between calls. Values that cannot be sent by value
// (cycles, DOM nodes) are returned from their preview instead. Promises are
// not awaited and come back as inspect.Pending.
func (h *Host) Eval(src string) (any, error) {
	page, err := h.currentPage()
	if err != nil {
		return nil, err
	}
	p := page.Timeout(h.cfg.timeout())
	defer p.CancelTimeout()

	req := proto.RuntimeEvaluate{
		Expression:      src,
		ReplMode:        true,
		AwaitPromise:    false,
		ReturnByValue:   true,
		GeneratePreview: true,
	}
	res, err := req.Call(p)
	if err != nil {
		logging.BrowserDebug("by-value evaluation failed, retrying by reference: %v", err)
		req.ReturnByValue = false
		res, err = req.Call(p)
	}
	if err != nil {
		return nil, err
	}
	if res.ExceptionDetails != nil {
		return nil, errors.New(exceptionMessage(res.ExceptionDetails))
	}
	if res.Result == nil {
		return inspect.Undefined, nil
	}
	h.touch("")
	return remoteValue(res.Result), nil
}
