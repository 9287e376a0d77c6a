package metadata

import "errors"

var (
	// ErrNilAnnotation возвращается при обработке параметра без аннотации.
	ErrNilAnnotation = errors.New("аннотация не задана")
	// ErrNilProcessor возвращается при регистрации пустого процессора.
	ErrNilProcessor = errors.New("процессор не задан")
	// ErrEmptyAnnotationType возвращается, если процессор не объявил тип аннотации.
	ErrEmptyAnnotationType = errors.New("тип аннотации не может быть пустым")
	// ErrAlreadyRegistered возвращается при повторной регистрации типа аннотации.
	ErrAlreadyRegistered = errors.New("процессор уже зарегистрирован")
	// ErrProcessorNotFound возвращается, если для типа аннотации нет процессора.
	ErrProcessorNotFound = errors.New("процессор не найден")
	// ErrAnnotationMismatch возвращается, если Go-тип аннотации не совпадает
	// с типом, который ожидает процессор.
	ErrAnnotationMismatch = errors.New("тип аннотации не совпадает с ожидаемым процессором")
	// ErrClosed возвращается после завершения работы реестра.
	ErrClosed = errors.New("реестр процессоров закрыт")
	// ErrNotStruct возвращается сканером для значений, не являющихся структурой.
	ErrNotStruct = errors.New("ожидается структура параметров")
	// ErrUnknownAnnotation возвращается сканером для тега без декодера.
	ErrUnknownAnnotation = errors.New("неизвестный тип аннотации")
)
