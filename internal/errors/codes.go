package errors

// 에러 코드 상수 정의
// 형식: CATEGORY_SPECIFIC_DETAIL
// 클라이언트는 이 코드를 기준으로 메시지를 매핑함

const (
	// ==================== 인증 (AUTH_) ====================
	AuthUnauthorized = "AUTH_UNAUTHORIZED"  // 로그인 필요
	AuthTokenExpired = "AUTH_TOKEN_EXPIRED" // 토큰 만료
	AuthTokenInvalid = "AUTH_TOKEN_INVALID" // 잘못된 토큰

	// ==================== 인가/권한 (AUTHZ_) ====================
	AuthzForbidden    = "AUTHZ_FORBIDDEN"      // 접근 권한 없음
	AuthzRoleNotFound = "AUTHZ_ROLE_NOT_FOUND" // 권한 정보 없음
	AuthzAdminOnly    = "AUTHZ_ADMIN_ONLY"     // 관리자만 가능

	// ==================== 검증 (VALIDATION_) ====================
	ValidationInvalidInput  = "VALIDATION_INVALID_INPUT"  // 잘못된 입력
	ValidationInvalidID     = "VALIDATION_INVALID_ID"     // 잘못된 ID
	ValidationInvalidFormat = "VALIDATION_INVALID_FORMAT" // 잘못된 형식
	ValidationInvalidRange  = "VALIDATION_INVALID_RANGE"  // 범위 초과
	ValidationRequired      = "VALIDATION_REQUIRED"       // 필수 항목

	// ==================== 리소스 (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"      // 리소스 없음
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS" // 이미 존재
	ResourceConflict      = "RESOURCE_CONFLICT"       // 충돌

	// ==================== 주문 (ORDER_) ====================
	OrderNotFound       = "ORDER_NOT_FOUND"         // 주문 없음
	OrderItemNotFound   = "ORDER_ITEM_NOT_FOUND"    // 주문 항목 없음
	OrderInvalidStatus  = "ORDER_INVALID_STATUS"    // 잘못된 주문 상태
	OrderVariantMissing = "ORDER_VARIANT_NOT_FOUND" // 옵션 없음

	// ==================== 재고 (INVENTORY_) ====================
	InventoryOutOfStock = "INVENTORY_OUT_OF_STOCK" // 재고 부족

	// ==================== 매입 (PURCHASE_) ====================
	PurchaseInvoiceNotFound = "PURCHASE_INVOICE_NOT_FOUND" // 전표 없음
	PurchaseInvoiceClosed   = "PURCHASE_INVOICE_CLOSED"    // 이미 처리된 전표

	// ==================== 분석 (ANALYTICS_) ====================
	AnalyticsSyncInProgress   = "ANALYTICS_SYNC_IN_PROGRESS"  // 동기화 진행 중
	AnalyticsDimensionMissing = "ANALYTICS_DIMENSION_MISSING" // 차원 데이터 누락
	AnalyticsExportFailed     = "ANALYTICS_EXPORT_FAILED"     // 보고서 생성 실패

	// ==================== 내부 오류 (INTERNAL_) ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"   // 서버 오류
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR" // DB 오류
	InternalExternalAPI   = "INTERNAL_EXTERNAL_API"   // 외부 API 오류
)
