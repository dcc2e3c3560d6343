package service

import (
	"context"

	"github.com/spec-kit/refund-claim-service/internal/domain"
	apperrors "github.com/spec-kit/refund-claim-service/pkg/util"
)

// NoteTemplateKind names the pre-written note starters offered on the
// evidence step.
type NoteTemplateKind string

const (
	NoteTemplateFlight  NoteTemplateKind = "flight"
	NoteTemplateHotel   NoteTemplateKind = "hotel"
	NoteTemplateMedical NoteTemplateKind = "medical"
	NoteTemplateOther   NoteTemplateKind = "other"
)

var noteTemplates = map[domain.Language]map[NoteTemplateKind]string{
	domain.LanguageEnglish: {
		NoteTemplateFlight:  "Flight [Number] from [Origin] to [Destination] on [Date] was cancelled. The airline offered a voucher, but I want a full refund to my original payment method.",
		NoteTemplateHotel:   "Checked into [Hotel Name] on [Date]. The room was unacceptable due to [Issue: Hygiene/Safety/Noise]. I complained to the front desk at [Time], but they did not resolve it.",
		NoteTemplateMedical: "I had to cancel my trip scheduled for [Date] due to a medical emergency. I have attached a doctor's certificate diagnosing me with [Condition].",
		NoteTemplateOther:   "I purchased [Service/Item] on [Date] for [Amount]. It was not provided as described because [Reason]. I contacted support on [Date] but received no response.",
	},
	domain.LanguageChinese: {
		NoteTemplateFlight:  "我预定的[日期]从[出发地]飞往[目的地]的航班[航班号]被取消了。航空公司只提供了代金券，但我要求退回到原支付方式。",
		NoteTemplateHotel:   "我在[日期]入住[酒店名称]，房间卫生/安全状况极差，具体问题是[问题描述]。我向前台投诉了但未获解决。",
		NoteTemplateMedical: "由于[日期]突发急病，我无法出行。已附上医生开具的诊断证明，确诊为[病情]。",
		NoteTemplateOther:   "我在[日期]支付[金额]购买了[服务/商品]。由于[原因]，服务未按约定提供。我在[日期]联系了客服但无回应。",
	},
	domain.LanguageSpanish: {
		NoteTemplateFlight:  "El vuelo [Número] de [Origen] a [Destino] el [Fecha] fue cancelado. La aerolínea ofreció un bono, pero quiero un reembolso completo a mi método de pago original.",
		NoteTemplateHotel:   "Me registré en [Nombre Hotel] el [Fecha]. La habitación era inaceptable debido a [Problema]. Me quejé en recepción a las [Hora], pero no lo solucionaron.",
		NoteTemplateMedical: "Tuve que cancelar mi viaje programado para el [Fecha] debido a una emergencia médica. Adjunto certificado médico con el diagnóstico [Condición].",
		NoteTemplateOther:   "Compré [Servicio] el [Fecha] por [Monto]. No se entregó como se describió porque [Razón]. Contacté al soporte el [Fecha] sin respuesta.",
	},
}

// NoteTemplate returns the pre-written note text for the kind in the given
// language, falling back to English for unknown languages.
func NoteTemplate(language domain.Language, kind NoteTemplateKind) (string, error) {
	byKind, ok := noteTemplates[language]
	if !ok {
		byKind = noteTemplates[domain.LanguageEnglish]
	}
	text, ok := byKind[kind]
	if !ok {
		return "", apperrors.NewValidationError("unknown note template", map[string]any{"kind": kind})
	}
	return text, nil
}

// ApplyNoteTemplate appends the selected template to the case notes.
func (s *CaseService) ApplyNoteTemplate(ctx context.Context, ownerID, caseID string, language domain.Language, kind NoteTemplateKind) (*CaseSnapshot, error) {
	text, err := NoteTemplate(language, kind)
	if err != nil {
		return nil, err
	}
	return s.AppendNotes(ctx, ownerID, caseID, text)
}
