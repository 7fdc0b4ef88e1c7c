package tutor

import (
	"context"
	"fmt"

	"github.com/m3rciful/pharmtutor/internal/content"
	"github.com/m3rciful/pharmtutor/internal/progress"
)

// AccessDenied is sent to non-admins calling admin commands.
const AccessDenied = "Нет доступа."

// AdminStats returns the usage summary text, or an error text when the store
// is unavailable.
func (t *Tutor) AdminStats(ctx context.Context) string {
	st, err := t.store.AdminStats(ctx)
	if err != nil {
		t.storeFault(ctx, "admin_stats", err)
		return "⚠️ Статистика временно недоступна."
	}
	return AdminStatsText(st)
}

// AdminStatsText renders bot usage for administrators.
func AdminStatsText(st progress.AdminStats) string {
	return fmt.Sprintf("📊 *Статистика бота*\n\n"+
		"👥 Пользователей всего: *%d*\n"+
		"🆕 Новых за 7 дней: *%d*\n"+
		"🔥 Активны сегодня: *%d*\n"+
		"📝 Вопросов отвечено: *%d*",
		st.TotalUsers, st.NewUsers7d, st.ActiveToday, st.TotalQuestions)
}

// ReloadText confirms a catalog reload.
func ReloadText(c content.Counts) string {
	return fmt.Sprintf("✅ *Данные обновлены*\n\n"+
		"Классов: %d\nПрепаратов: %d\nВопросов: %d\nСлучаев: %d\n"+
		"Взаимодействий: %d\nТерминов: %d\nНейромедиаторов: %d\nСоветов: %d",
		c.Classes, c.Drugs, c.Questions, c.Cases,
		c.Interactions, c.Glossary, c.Neurotransmitters, c.Tips)
}

// ReloadFailedText reports a rejected reload; the previous catalog stays.
func ReloadFailedText(err error) string {
	return "⚠️ Данные не обновлены, используется прежняя версия.\n\n" + err.Error()
}
