package service

// Bridges for external tests over unexported template internals.

var RenderMessageForTest = renderMessage

// TemplateDataForTest builds message data without exposing the internal type.
func TemplateDataForTest(studentName, program, university, offerTerms string) templateData {
	return templateData{
		StudentName: studentName,
		Program:     program,
		University:  university,
		OfferTerms:  offerTerms,
	}
}
