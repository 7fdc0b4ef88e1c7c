package tutor

import "strings"

// Focus values offered by the pharma comparison.
const (
	FocusOverview    = "Общий обзор"
	FocusElderly     = "Безопасность у пожилых"
	FocusPregnancy   = "Беременность и лактация"
	FocusMetabolic   = "Метаболический профиль"
	FocusCardiac     = "Кардиологическая безопасность"
	FocusInteraction = "Взаимодействия"
	FocusAdherence   = "Комплаентность"
)

type focusOption struct {
	Label string
	Value string
}

var focusOptions = []focusOption{
	{"🏥 Общий обзор", FocusOverview},
	{"👴 Безопасность у пожилых", FocusElderly},
	{"🤰 Беременность и лактация", FocusPregnancy},
	{"⚖️ Метаболический профиль", FocusMetabolic},
	{"❤️ Кардиологическая безопасность", FocusCardiac},
	{"⚠️ Взаимодействия", FocusInteraction},
	{"💊 Комплаентность", FocusAdherence},
}

// knownTraps are pitfalls tied to a specific set of drugs; a rule applies
// when every name in Drugs is part of the comparison.
var knownTraps = []struct {
	Drugs []string
	Traps []string
}{
	{[]string{"Флуоксетин", "Пароксетин"}, []string{
		"Пароксетин при раке молочной железы на тамоксифене — снижает активацию тамоксифена до эндоксифена через CYP2D6. Предпочтителен сертралин или эсциталопрам.",
	}},
	{[]string{"Вальпроат", "Ламотриджин"}, []string{
		"Вальпроат удваивает уровень ламотриджина → синдром Стивенса–Джонсона при стандартной скорости титрации. При совместном применении — вдвое медленнее наращивать дозу ламотриджина.",
	}},
	{[]string{"Оланзапин", "Арипипразол"}, []string{
		"При ожирении/МС — оланзапин ухудшает метаболический статус. Арипипразол метаболически нейтрален. Но: при акатизии арипипразол сам может её вызвать.",
	}},
	{[]string{"Литий", "НПВС"}, []string{
		"НПВС снижают почечный клиренс лития → токсичность. Пациентам на литии рекомендовать парацетамол вместо НПВС.",
	}},
	{[]string{"Клозапин", "Рисперидон"}, []string{
		"Рисперидон вызывает наиболее выраженную гиперпролактинемию среди атипичных; клозапин — минимальную. При сексуальных жалобах или остеопорозе у женщин — учитывать.",
	}},
}

const genericTrap = "Не переносить результаты популяционных РКИ напрямую на конкретного пациента — " +
	"индивидуальные факторы (метаболизм, коморбидность, принимаемые препараты) критичны."

func (r pharmaReport) traps() []string {
	for _, k := range knownTraps {
		all := true
		for _, name := range k.Drugs {
			if !r.hasName(name) {
				all = false
				break
			}
		}
		if all {
			return k.Traps
		}
	}

	var out []string
	if r.hasClass("SSRI") && r.hasClass("TCA") {
		out = append(out, "ТЦА при передозировке кардиотоксичны — не выбирать при суицидальном риске. SSRI значительно безопаснее.")
	}
	if r.hasClass("Бензодиазепины") && r.anyClass(func(c string) bool { return strings.Contains(strings.ToLower(c), "антипсихотик") }) {
		out = append(out, "Комбинация бензодиазепинов с клозапином (особенно парентерально) — риск остановки дыхания.")
	}
	if len(out) == 0 {
		out = append(out, genericTrap)
	}
	return out
}

func (r pharmaReport) pearl() string {
	switch {
	case r.hasClass("SSRI") && r.hasName("Флуоксетин"):
		return "Флуоксетин — единственный SSRI с T½ 1–4 дня + активный метаболит норфлуоксетин " +
			"T½ 7–15 дней → минимальный синдром отмены. Но при переходе на MAOI — 5 недель отмывания."
	case r.hasClass("Стабилизаторы настроения") && r.hasName("Ламотриджин"):
		return "Ламотриджин — лучший стабилизатор для профилактики депрессивных фаз при БАР, " +
			"но неэффективен при острой мании. Медленная титрация — не опциональна."
	case r.hasClass("Атипичные антипсихотики"):
		return "Метаболический риск атипичных антипсихотиков (от наибольшего к меньшему): " +
			"Клозапин ≈ Оланзапин > Кветиапин > Рисперидон > Арипипразол ≈ Зипразидон ≈ Луразидон."
	case r.Focus == FocusElderly:
		return "У пожилых — начинать с ½ стандартной дозы (start low, go slow). Избегать ТЦА и бензодиазепинов (список Бирса)."
	case r.Focus == FocusPregnancy:
		return "Для грудного вскармливания: сертралин и пароксетин имеют наименьший RID (<2%) среди антидепрессантов."
	}
	return "«Лучший препарат» не существует абстрактно — он лучший для конкретного пациента " +
		"с конкретными характеристиками. Всегда начинать с профиля пациента, а не с препарата."
}

type scenario struct {
	Title       string
	Choice      string
	Rationale   string
	Alternative string
}

var elderlyAvoid = map[string]bool{"TCA": true, "MAOI": true, "Бензодиазепины": true}

func (r pharmaReport) scenarios() []scenario {
	if len(r.Drugs) < 2 {
		return nil
	}
	first, second := r.Drugs[0], r.Drugs[1]
	indication := "—"
	if len(first.Indications) > 0 {
		indication = first.Indications[0]
	}
	elderly := "Уточнить"
	for _, d := range r.Drugs {
		if !elderlyAvoid[d.Class] {
			elderly = d.Name
			break
		}
	}
	return []scenario{
		{
			Title:       "Стандартный взрослый пациент",
			Choice:      first.Name,
			Rationale:   first.Name + " (" + first.Class + "): " + indication + ". Хорошо изучен, предсказуемый профиль переносимости.",
			Alternative: second.Name,
		},
		{
			Title:       "Пожилой пациент (≥65 лет) / соматическая коморбидность",
			Choice:      elderly,
			Rationale:   "Избегать ТЦА и бензодиазепинов (список Бирса, риск падений, когнитивные нарушения). Начинать с ½ стандартной дозы.",
			Alternative: "Любой SSRI при отсутствии противопоказаний",
		},
		{
			Title:       "Беременность / репродуктивный возраст",
			Choice:      "Сертралин (антидепрессант) / Ламотриджин (стабилизатор)",
			Rationale:   "Наиболее изученные при беременности. Вальпроат — абсолютно противопоказан (тератогенность). Решение — с акушером-гинекологом.",
			Alternative: "Флуоксетин (при невозможности сертралина)",
		},
		{
			Title:  "Резистентный пациент (≥2 неэффективных курса)",
			Choice: "Смена класса или аугментация",
			Rationale: "При шизофрении — клозапин. При депрессии — аугментация литием, атипичным антипсихотиком или ЭСТ. " +
				"Наращивание дозы неэффективного препарата нецелесообразно.",
			Alternative: "ЭСТ при тяжёлой резистентной депрессии",
		},
	}
}

func (r pharmaReport) evidence() []string {
	var out []string
	if r.hasClass("SSRI") || r.hasClass("SNRI") {
		out = append(out,
			"[Cipriani et al., Lancet 2018] — 522 РКИ, 116 тыс. пациентов: все современные антидепрессанты эффективнее плацебо; сертралин — оптимальный баланс эффективности и переносимости. Уровень A",
			"[CANMAT 2023] — SSRI и SNRI — препараты первой линии при депрессии. Уровень A",
		)
	}
	if r.hasClass("Атипичные антипсихотики") || r.hasClass("Типичные антипсихотики") {
		out = append(out,
			"[Huhn et al., Lancet 2019] — Сравнение 32 антипсихотиков: различия в переносимости значительнее, чем в эффективности. Уровень A",
			"[Leucht et al., Lancet 2013] — Клозапин наиболее эффективен при рефрактерной шизофрении. Уровень A",
		)
	}
	if r.hasClass("Стабилизаторы настроения") {
		out = append(out,
			"[BAP guidelines, J Psychopharmacol 2016] — Литий — gold standard профилактики при БАР. Уровень A",
			"[Geddes et al., Lancet 2010] — Ламотриджин: профилактика депрессивных фаз БАР (NNT=5), слабо при маниакальных. Уровень A",
		)
	}
	if r.hasClass("Бензодиазепины") {
		out = append(out, "[Lader, Drugs 2011] — Зависимость к бензодиазепинам после 4–6 нед. Рекомендуются курсы ≤2–4 нед. Уровень B")
	}
	return append(out, "[Клинические рекомендации МЗ РФ] — Российские стандарты по нозологии. Уточнить актуальную версию на сайте МЗ РФ.")
}
