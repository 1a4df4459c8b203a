package selectors

import (
	"github.com/yungbote/campus-backend/internal/data/txscope"
	"github.com/yungbote/campus-backend/internal/domain/domainerr"
	"github.com/yungbote/campus-backend/internal/platform/logger"
)

// readErr maps a repository error and logs it unless it is a plain miss.
func readErr(log *logger.Logger, op string, err error) error {
	mapped := txscope.MapError(op, err)
	if !domainerr.IsCode(mapped, domainerr.CodeNotFound) {
		log.Warn("Read failed", "op", op, "error", err)
	}
	return mapped
}
