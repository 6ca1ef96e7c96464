package world

func (w *World) auditSetBlock(tick uint64, actor string, pos Vec3i, from, to uint16, reason, runID string) {
	if w.auditLogger == nil {
		return
	}
	entry := AuditEntry{
		Tick:   tick,
		Actor:  actor,
		Action: "SET_BLOCK",
		Pos:    posArray(pos),
		From:   from,
		To:     to,
		Reason: reason,
		RunID:  runID,
	}
	if err := w.auditLogger.WriteAudit(entry); err != nil {
		w.log.Error("audit write failed", "err", err)
	}
}

func (w *World) emitPromotion(rec PromotionRecord) {
	for _, s := range w.sinks {
		if err := s.WritePromotion(rec); err != nil {
			w.log.Error("promotion sink failed", "run_id", rec.RunID, "err", err)
		}
	}
}
